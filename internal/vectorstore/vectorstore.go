// Package vectorstore abstracts the two persistent vector collections:
// document-level summaries and passage-level chunks.
package vectorstore

import "context"

const (
	CollectionChunks = "corpusflower_chunks"
	CollectionDocs   = "corpusflower_docs"
)

// Record is one row of a collection. Upsert by ID is idempotent: a
// repeated upsert with the same id replaces, never duplicates.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Result is one nearest-neighbor hit. Distance is similarity-inverse:
// lower means more similar. Values are internally consistent but not
// tied to a specific metric.
type Result struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// Store is implemented by the qdrant client and the in-memory store.
type Store interface {
	// EnsureCollections creates both collections when absent.
	EnsureCollections(ctx context.Context, dimensions int) error

	// Upsert writes records immediately; no staged or async writes.
	Upsert(ctx context.Context, collection string, records []Record) error

	// Query returns up to k nearest records ascending by distance,
	// optionally restricted to records whose metadata matches every
	// entry of filter exactly.
	Query(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]Result, error)

	// DeleteByDoc removes every record whose doc_id metadata matches,
	// so a shrinking document cannot leave stale chunks behind.
	DeleteByDoc(ctx context.Context, collection, docID string) error
}
