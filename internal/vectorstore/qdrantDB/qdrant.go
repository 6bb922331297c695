// Package qdrantDB backs the vector store with a qdrant instance over
// gRPC.
package qdrantDB

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type Config struct {
	Host   string
	Port   int
	UseTLS bool
}

type Store struct {
	client *qdrant.Client
	logger *logger_i.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore dials qdrant. The client is built once in main and passed
// down; Close releases the connection on shutdown.
func NewStore(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Store{
		client: client,
		logger: logger_i.NewLogger("qdrant"),
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) EnsureCollections(ctx context.Context, dimensions int) error {
	for _, name := range []string{vectorstore.CollectionDocs, vectorstore.CollectionChunks} {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if exists {
			continue
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		s.logger.Info("created collection", "name", name, "dimensions", dimensions)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		payload := map[string]any{
			"record_id": rec.ID,
			"content":   rec.Text,
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(collection, rec.ID)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]vectorstore.Result, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filter) > 0 {
		var must []*qdrant.Condition
		for key, value := range filter {
			must = append(must, qdrant.NewMatch(key, value))
		}
		query.Filter = &qdrant.Filter{Must: must}
	}

	hits, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s: %w", collection, err)
	}

	results := make([]vectorstore.Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, vectorstore.Result{
			ID:       hit.Payload["record_id"].GetStringValue(),
			Text:     hit.Payload["content"].GetStringValue(),
			Metadata: payloadMetadata(hit.Payload),
			// Cosine score is higher-is-better; retrieval contracts use
			// a similarity-inverse distance.
			Distance: 1 - float64(hit.Score),
		})
	}
	return results, nil
}

func (s *Store) DeleteByDoc(ctx context.Context, collection, docID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete doc %s from %s: %w", docID, collection, err)
	}
	return nil
}

// pointID derives a stable UUID from the record id so re-upserting the
// same record replaces it. Qdrant only accepts UUID or integer ids; the
// original string id travels in the payload.
func pointID(collection, recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+recordID)).String()
}

func payloadMetadata(payload map[string]*qdrant.Value) map[string]any {
	meta := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "record_id" || k == "content" {
			continue
		}
		switch kind := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			meta[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			meta[k] = int(kind.IntegerValue)
		case *qdrant.Value_DoubleValue:
			meta[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			meta[k] = kind.BoolValue
		}
	}
	return meta
}
