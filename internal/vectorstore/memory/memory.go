// Package memory is a brute-force in-process vector store. It backs the
// test suite and small local corpora that do not warrant a qdrant
// deployment.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/corpusflower/corpusflower/internal/vectorstore"
)

type entry struct {
	record vectorstore.Record
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]entry // collection -> record id -> entry
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]entry)}
}

func (s *Store) EnsureCollections(ctx context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range []string{vectorstore.CollectionDocs, vectorstore.CollectionChunks} {
		if _, ok := s.collections[name]; !ok {
			s.collections[name] = make(map[string]entry)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]entry)
		s.collections[collection] = col
	}
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record without id in collection %s", collection)
		}
		col[rec.ID] = entry{record: rec}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]vectorstore.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.collections[collection]
	results := make([]vectorstore.Result, 0, len(col))
	for _, e := range col {
		if !matches(e.record.Metadata, filter) {
			continue
		}
		results = append(results, vectorstore.Result{
			ID:       e.record.ID,
			Text:     e.record.Text,
			Metadata: e.record.Metadata,
			Distance: 1 - cosine(vector, e.record.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Store) DeleteByDoc(ctx context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collections[collection]
	for id, e := range col {
		if fmt.Sprint(e.record.Metadata["doc_id"]) == docID {
			delete(col, id)
		}
	}
	return nil
}

// Count reports the number of records in a collection; used by tests.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matches(meta map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
