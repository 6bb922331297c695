package domain

import "fmt"

// Fingerprint identifies the on-disk state of a source file. Any field
// changing between runs forces re-ingestion of that file.
type Fingerprint struct {
	Size  int64   `json:"size"`
	MTime float64 `json:"mtime"`
	Hash  string  `json:"hash"`
}

// Manifest entry statuses. A failed entry never matches the current
// fingerprint, so files that produced no index data are retried on the
// next run instead of being silently excluded forever.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Chunk is one bounded, overlapping slice of a document's text. Indices
// are 0-based and contiguous over the kept (non-empty) chunks.
type Chunk struct {
	Text  string
	Index int
}

// ChunkID derives the vector-record id of a chunk. Chunk identity is
// owned by exactly one document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk-%d", docID, index)
}

// DocumentRecord is the document-level row: one per source file in the
// docs collection and one node in the semantic graph.
type DocumentRecord struct {
	ID        string
	Title     string
	Language  string
	PageCount int
	Summary   string
}

// Occurrence is one concordance entry: a candidate term observed in a
// specific chunk. The concordance is not consulted by retrieval.
type Occurrence struct {
	Term       string `json:"term"`
	DocID      string `json:"doc_id"`
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Language   string `json:"language"`
	Title      string `json:"title"`
}
