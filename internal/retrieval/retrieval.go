// Package retrieval answers questions with a two-hop walk: question →
// document summaries (hubs) → passages inside the winning documents.
// This bounds passage fan-out while keeping passages anchored to
// globally relevant documents, without a real graph-query engine.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corpusflower/corpusflower/internal/cache"
	"github.com/corpusflower/corpusflower/internal/embedding"
	"github.com/corpusflower/corpusflower/internal/metrics"
	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type Retriever struct {
	batcher *embedding.Batcher
	vectors vectorstore.Store
	cache   *cache.EmbeddingCache // nil disables caching
	logger  *logger_i.Logger
}

func NewRetriever(batcher *embedding.Batcher, vectors vectorstore.Store, embCache *cache.EmbeddingCache) *Retriever {
	return &Retriever{
		batcher: batcher,
		vectors: vectors,
		cache:   embCache,
		logger:  logger_i.NewLogger("retrieval"),
	}
}

// Retrieve returns (docSummaries, passages). The document list keeps its
// nearest-neighbor order from the first hop; passages are merged across
// documents, deduplicated by id keeping the lowest distance, sorted
// ascending by distance, and truncated to nPassages. An empty question
// degrades to empty results rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, nDocs, nPassages int) ([]vectorstore.Result, []vectorstore.Result, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return []vectorstore.Result{}, []vectorstore.Result{}, nil
	}

	vec, err := r.questionVector(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	docs, err := r.vectors.Query(ctx, vectorstore.CollectionDocs, vec, nDocs, nil)
	metrics.CaptureExecutionMetrics("vector_search_docs", time.Since(start))
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return []vectorstore.Result{}, []vectorstore.Result{}, nil
	}

	// Per-document budget keeps one huge document from monopolizing the
	// passage list.
	perDoc := nPassages / max(1, nDocs)
	if perDoc < 1 {
		perDoc = 1
	}

	passages, err := r.passagesForDocs(ctx, vec, docs, perDoc)
	if err != nil {
		return nil, nil, err
	}

	return docs, mergePassages(passages, nPassages), nil
}

func (r *Retriever) questionVector(ctx context.Context, q string) ([]float32, error) {
	if vec, ok := r.cache.Get(ctx, q); ok {
		r.logger.Debug("query embedding served from cache")
		return vec, nil
	}

	start := time.Now()
	vec, err := r.batcher.EmbedOne(ctx, q)
	metrics.CaptureExecutionMetrics("embedding_query", time.Since(start))
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, q, vec)
	return vec, nil
}

// passagesForDocs issues the per-document chunk queries concurrently.
// They are read-only and independent; the later merge orders strictly by
// distance value, so completion order cannot leak into results.
func (r *Retriever) passagesForDocs(ctx context.Context, vec []float32, docs []vectorstore.Result, perDoc int) ([]vectorstore.Result, error) {
	slots := make([][]vectorstore.Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			results, err := r.vectors.Query(gctx, vectorstore.CollectionChunks, vec, perDoc,
				map[string]string{"doc_id": doc.ID})
			if err != nil {
				return err
			}
			slots[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []vectorstore.Result
	for _, slot := range slots {
		all = append(all, slot...)
	}
	return all, nil
}

// mergePassages deduplicates by passage id keeping the minimum observed
// distance, then sorts ascending by distance (ties broken on id for
// determinism) and truncates to the global budget.
func mergePassages(passages []vectorstore.Result, nPassages int) []vectorstore.Result {
	best := make(map[string]vectorstore.Result, len(passages))
	for _, p := range passages {
		if existing, ok := best[p.ID]; !ok || p.Distance < existing.Distance {
			best[p.ID] = p
		}
	}

	merged := make([]vectorstore.Result, 0, len(best))
	for _, p := range best {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Distance != merged[j].Distance {
			return merged[i].Distance < merged[j].Distance
		}
		return merged[i].ID < merged[j].ID
	})

	if len(merged) > nPassages {
		merged = merged[:nPassages]
	}
	return merged
}
