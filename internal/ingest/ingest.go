// Package ingest drives the incremental indexing run: enumerate source
// files, skip the unchanged ones via the manifest, and push the rest
// through extraction, chunking, embedding, and the derived stores.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/corpusflower/corpusflower/internal/chunker"
	"github.com/corpusflower/corpusflower/internal/concordance"
	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/internal/domain"
	"github.com/corpusflower/corpusflower/internal/embedding"
	"github.com/corpusflower/corpusflower/internal/extract"
	"github.com/corpusflower/corpusflower/internal/graph"
	"github.com/corpusflower/corpusflower/internal/heuristics"
	"github.com/corpusflower/corpusflower/internal/manifest"
	"github.com/corpusflower/corpusflower/internal/metrics"
	"github.com/corpusflower/corpusflower/internal/summarize"
	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

// errSkipDocument marks per-file failures that must not abort the run.
// The file is recorded as failed in the manifest so the next run retries
// it.
var errSkipDocument = errors.New("document skipped")

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".docx": true,
	".rtf":  true,
	".odt":  true,
}

// Deps are the collaborators a Pipeline needs. Every field is required
// except as noted on the field.
type Deps struct {
	SourceDir  string
	DataDir    string
	Dimensions int

	Extractor   *extract.Extractor
	Batcher     *embedding.Batcher
	Vectors     vectorstore.Store
	Graph       *graph.Store
	Manifest    *manifest.Store
	Concordance *concordance.Store
	Summarizer  summarize.Summarizer
}

type Pipeline struct {
	deps         Deps
	retryBackoff time.Duration
	logger       *logger_i.Logger
}

func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{
		deps:         deps,
		retryBackoff: config.ProviderRetryBackoff,
		logger:       logger_i.NewLogger("ingest"),
	}
}

// Run performs one full incremental pass over the source directory.
// Provider errors that survive their retry budget are fatal: the run
// stops before the manifest commit, so already-processed files keep
// their new state in Qdrant but the manifest still points at the old
// fingerprints and the next run redoes the unfinished tail.
func (p *Pipeline) Run(ctx context.Context) error {
	lock := flock.New(filepath.Join(p.deps.DataDir, ".ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !locked {
		return errors.New("another ingestion run is already in progress")
	}
	defer lock.Unlock()

	started := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingest_run", time.Since(started)) }()

	entries, err := p.deps.Manifest.Load(ctx)
	if err != nil {
		return err
	}

	names, err := p.listSourceFiles()
	if err != nil {
		return err
	}
	p.logger.Info("ingestion run started", "files", len(names), "known", len(entries))

	// Fingerprint everything up front. The updated manifest only holds
	// files that exist right now, so deletions fall out naturally.
	updated := make(map[string]manifest.Entry, len(names))
	var toIngest []string
	for _, name := range names {
		fp, err := manifest.Fingerprint(filepath.Join(p.deps.SourceDir, name))
		if err != nil {
			return err
		}
		if manifest.Changed(entries, name, fp) {
			toIngest = append(toIngest, name)
			updated[name] = manifest.Entry{Fingerprint: fp, Status: domain.StatusOK}
		} else {
			updated[name] = entries[name]
		}
	}

	if len(toIngest) == 0 {
		p.logger.Info("no new or changed documents")
		return p.deps.Manifest.Commit(ctx, updated)
	}

	if err := p.deps.Vectors.EnsureCollections(ctx, p.deps.Dimensions); err != nil {
		return err
	}

	ingested, skipped := 0, 0
	for _, name := range toIngest {
		fileStart := time.Now()
		err := p.ingestFile(ctx, name)
		switch {
		case errors.Is(err, errSkipDocument):
			p.logger.Warn("document skipped", "file", name, "reason", err)
			entry := updated[name]
			entry.Status = domain.StatusFailed
			updated[name] = entry
			skipped++
			metrics.CaptureDocumentIngest("skipped", time.Since(fileStart))
		case err != nil:
			metrics.CaptureDocumentIngest("failed", time.Since(fileStart))
			return fmt.Errorf("ingest %s: %w", name, err)
		default:
			ingested++
			metrics.CaptureDocumentIngest("ok", time.Since(fileStart))
		}
	}

	if err := p.deps.Manifest.Commit(ctx, updated); err != nil {
		return err
	}
	p.logger.Info("ingestion run finished",
		"ingested", ingested, "skipped", skipped, "unchanged", len(names)-len(toIngest))
	return nil
}

func (p *Pipeline) listSourceFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(p.deps.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", p.deps.SourceDir, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			names = append(names, de.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}

// ingestFile fully indexes one document. Errors wrapping errSkipDocument
// are per-file and recoverable; anything else aborts the run.
func (p *Pipeline) ingestFile(ctx context.Context, name string) error {
	docID := name
	path := filepath.Join(p.deps.SourceDir, name)

	text, meta, err := p.deps.Extractor.Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", errSkipDocument, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: no extractable text", errSkipDocument)
	}

	chunks := chunker.Chunk(text, config.MaxChunkChars, config.ChunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no usable chunks", errSkipDocument)
	}

	title := strings.TrimSuffix(name, filepath.Ext(name))
	tradition := heuristics.GuessTradition(text)
	docSymbolHint := heuristics.DetectSymbolHint(text)
	p.logger.Info("ingesting document",
		"file", name, "pages", meta.PageCount, "chunks", len(chunks), "language", meta.Language)

	summary, err := p.summarizeWithRetry(ctx, text, meta.Language, title)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	// One embedding pass covers every chunk plus the summary, so the
	// batcher can pack them together; the summary vector is last.
	texts := make([]string, 0, len(chunks)+1)
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	texts = append(texts, summary)

	vectors, err := p.deps.Batcher.EmbedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	summaryVector := vectors[len(vectors)-1]

	docRecord := vectorstore.Record{
		ID:     docID,
		Vector: summaryVector,
		Text:   summary,
		Metadata: map[string]any{
			"source":      name,
			"title":       title,
			"language":    meta.Language,
			"page_count":  meta.PageCount,
			"tradition":   tradition,
			"symbol_hint": docSymbolHint,
		},
	}
	if err := p.deps.Vectors.Upsert(ctx, vectorstore.CollectionDocs, []vectorstore.Record{docRecord}); err != nil {
		return err
	}

	// Drop the document's previous chunks first: a shrunk document must
	// not leave stale tail chunks behind.
	if err := p.deps.Vectors.DeleteByDoc(ctx, vectorstore.CollectionChunks, docID); err != nil {
		return err
	}
	chunkRecords := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		md := map[string]any{
			"source":      name,
			"doc_id":      docID,
			"title":       title,
			"language":    meta.Language,
			"chunk_index": c.Index,
		}
		if heuristics.DetectSymbolHint(c.Text) {
			md["symbol_hint"] = true
		}
		chunkRecords[i] = vectorstore.Record{
			ID:       domain.ChunkID(docID, c.Index),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: md,
		}
	}
	if err := p.deps.Vectors.Upsert(ctx, vectorstore.CollectionChunks, chunkRecords); err != nil {
		return err
	}

	if err := p.updateGraph(ctx, docID, title, meta.Language, summaryVector); err != nil {
		return err
	}
	if err := p.deps.Concordance.DeleteByDoc(ctx, docID); err != nil {
		return err
	}
	if err := p.deps.Concordance.Append(ctx, occurrences(docID, title, meta.Language, chunks)); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) summarizeWithRetry(ctx context.Context, text, language, title string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= config.MaxProviderRetries; attempt++ {
		summary, err := p.deps.Summarizer.Summarize(ctx, text, language, title)
		if err == nil {
			return summary, nil
		}
		lastErr = err
		p.logger.Warn("summarize attempt failed",
			"attempt", attempt, "max", config.MaxProviderRetries, "error", err)
		if attempt < config.MaxProviderRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.retryBackoff * time.Duration(attempt)):
			}
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", config.MaxProviderRetries, lastErr)
}

// updateGraph refreshes the document's node and links it to its nearest
// neighbors in summary-vector space.
func (p *Pipeline) updateGraph(ctx context.Context, docID, title, language string, summaryVector []float32) error {
	if err := p.deps.Graph.UpsertNode(ctx, docID, title, language); err != nil {
		return err
	}

	// Ask for one extra hit because the document's own summary comes
	// back as its best match.
	neighbors, err := p.deps.Vectors.Query(ctx, vectorstore.CollectionDocs, summaryVector, config.GraphNeighbors+1, nil)
	if err != nil {
		return err
	}

	var candidates []graph.Candidate
	for _, n := range neighbors {
		if n.ID == docID {
			continue
		}
		similarity := 1 - n.Distance
		if similarity < 0 {
			similarity = 0
		}
		if similarity > 1 {
			similarity = 1
		}
		candidates = append(candidates, graph.Candidate{ID: n.ID, Similarity: similarity})
		if len(candidates) == config.GraphNeighbors {
			break
		}
	}
	return p.deps.Graph.AddEdges(ctx, docID, candidates)
}

func occurrences(docID, title, language string, chunks []domain.Chunk) []domain.Occurrence {
	var out []domain.Occurrence
	for _, c := range chunks {
		for _, term := range heuristics.CandidateTerms(c.Text, language) {
			out = append(out, domain.Occurrence{
				Term:       term,
				DocID:      docID,
				ChunkID:    domain.ChunkID(docID, c.Index),
				ChunkIndex: c.Index,
				Language:   language,
				Title:      title,
			})
		}
	}
	return out
}
