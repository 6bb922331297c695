package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corpusflower/corpusflower/internal/concordance"
	"github.com/corpusflower/corpusflower/internal/domain"
	"github.com/corpusflower/corpusflower/internal/embedding"
	"github.com/corpusflower/corpusflower/internal/extract"
	"github.com/corpusflower/corpusflower/internal/graph"
	"github.com/corpusflower/corpusflower/internal/manifest"
	"github.com/corpusflower/corpusflower/internal/retrieval"
	"github.com/corpusflower/corpusflower/internal/store"
	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/internal/vectorstore/memory"
)

const vectorDims = 32

// bagProvider embeds text as a deterministic bag-of-words vector so
// lexically similar texts land close together in cosine space. It also
// counts calls, which is how the tests prove idempotence.
type bagProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *bagProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, vectorDims)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%vectorDims]++
		}
		out[i] = vec
	}
	return out, nil
}

func (p *bagProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeSummarizer struct {
	err error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, text, language, title string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	// Echo the opening of the document so the summary vector inherits
	// its vocabulary, like a real summary would.
	snippet := text
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return "Catalog summary of " + title + ": " + snippet, nil
}

type fixture struct {
	sourceDir string
	provider  *bagProvider
	vectors   *memory.Store
	graph     *graph.Store
	concord   *concordance.Store
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sourceDir := t.TempDir()
	dataDir := t.TempDir()

	db, err := store.Open(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		sourceDir: sourceDir,
		provider:  &bagProvider{},
		vectors:   memory.NewStore(),
		graph:     graph.NewStore(db),
		concord:   concordance.NewStore(db),
	}
	f.pipeline = NewPipeline(Deps{
		SourceDir:   sourceDir,
		DataDir:     dataDir,
		Dimensions:  vectorDims,
		Extractor:   extract.New(nil),
		Batcher:     embedding.NewBatcher(f.provider),
		Vectors:     f.vectors,
		Graph:       f.graph,
		Manifest:    manifest.NewStore(db),
		Concordance: f.concord,
		Summarizer:  &fakeSummarizer{},
	})
	f.pipeline.retryBackoff = time.Millisecond
	return f
}

func (f *fixture) writeDoc(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.sourceDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const saturnText = `The seal of Saturn is drawn within a double circle. The pentacle
bears the characters of the intelligence of Saturn and must be engraved
upon lead in the day and hour of Saturn. The figure is surrounded by
divine names, and the talisman so prepared guards against the spirits
of melancholy.`

const gardenText = `Raised beds warm earlier in spring than open ground. Compost
should be turned every two weeks and kept moist. Tomatoes, beans, and
squash tolerate partial shade; root vegetables want loose, well-drained
soil and steady watering through the summer months.`

func TestRunIngestsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "saturn.txt", saturnText)
	f.writeDoc(t, "garden.txt", gardenText)
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if got := f.vectors.Count(vectorstore.CollectionDocs); got != 2 {
		t.Errorf("docs collection has %d records, want 2", got)
	}
	if got := f.vectors.Count(vectorstore.CollectionChunks); got == 0 {
		t.Error("chunks collection is empty")
	}
	callsAfterFirst := f.provider.callCount()
	if callsAfterFirst == 0 {
		t.Fatal("no embedding calls made")
	}

	// Second run over unchanged files must not touch the provider.
	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if f.provider.callCount() != callsAfterFirst {
		t.Errorf("unchanged corpus re-embedded: %d calls, want %d",
			f.provider.callCount(), callsAfterFirst)
	}
}

func TestRunReingestsChangedFile(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "saturn.txt", saturnText)
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	before := f.provider.callCount()

	f.writeDoc(t, "saturn.txt", saturnText+"\nAn appendix on the seal of Jupiter.")
	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if f.provider.callCount() <= before {
		t.Error("changed file was not re-embedded")
	}
	if got := f.vectors.Count(vectorstore.CollectionDocs); got != 1 {
		t.Errorf("docs collection has %d records, want 1", got)
	}
}

func TestRunSkipsEmptyDocumentThenRetries(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "blank.txt", "   \n\t  \n")
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.vectors.Count(vectorstore.CollectionDocs); got != 0 {
		t.Errorf("empty document produced %d doc records", got)
	}

	// The blank file gained content; the failed manifest entry must not
	// shield it from re-ingestion even though its fingerprint could in
	// principle have been recorded.
	f.writeDoc(t, "blank.txt", saturnText)
	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.vectors.Count(vectorstore.CollectionDocs); got != 1 {
		t.Errorf("recovered document not ingested: %d doc records", got)
	}
}

func TestRunFatalOnSummarizerFailure(t *testing.T) {
	f := newFixture(t)
	f.pipeline.deps.Summarizer = &fakeSummarizer{err: errors.New("model unavailable")}
	f.writeDoc(t, "saturn.txt", saturnText)

	if err := f.pipeline.Run(context.Background()); err == nil {
		t.Fatal("expected fatal error when summarization keeps failing")
	}

	// The failed run must not have committed: a healthy summarizer
	// picks the same file up again.
	f.pipeline.deps.Summarizer = &fakeSummarizer{}
	if err := f.pipeline.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.vectors.Count(vectorstore.CollectionDocs); got != 1 {
		t.Errorf("document not ingested after recovery: %d doc records", got)
	}
}

func TestRunBuildsGraphEdges(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "saturn.txt", saturnText)
	f.writeDoc(t, "saturn2.txt", strings.Replace(saturnText, "melancholy", "sorrow", 1))
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}

	snap, err := f.graph.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 2 {
		t.Fatalf("graph has %d nodes, want 2", len(snap.Nodes))
	}
	if len(snap.Edges) == 0 {
		t.Fatal("near-duplicate documents produced no graph edge")
	}
	e := snap.Edges[0]
	if e.Source == e.Target {
		t.Errorf("self edge %q", e.Source)
	}
	if e.Weight <= 0 || e.Weight > 1 {
		t.Errorf("edge weight %v outside (0, 1]", e.Weight)
	}
}

func TestRunWritesConcordance(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "saturn.txt", saturnText)
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := f.concord.CountByTerm(ctx, "pentacle")
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error(`no concordance rows for "pentacle"`)
	}
}

func TestEndToEndRetrieval(t *testing.T) {
	f := newFixture(t)
	f.writeDoc(t, "saturn.txt", saturnText)
	f.writeDoc(t, "garden.txt", gardenText)
	ctx := context.Background()

	if err := f.pipeline.Run(ctx); err != nil {
		t.Fatal(err)
	}

	r := retrieval.NewRetriever(embedding.NewBatcher(f.provider), f.vectors, nil)
	docs, passages, err := r.Retrieve(ctx, "the pentacle and seal of Saturn engraved upon lead", 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d doc summaries, want 2", len(docs))
	}
	if docs[0].ID != "saturn.txt" {
		t.Errorf("best document is %q, want saturn.txt", docs[0].ID)
	}
	if len(passages) == 0 {
		t.Fatal("no passages returned")
	}
	if !strings.HasPrefix(passages[0].ID, "saturn.txt"+"::") {
		t.Errorf("best passage %q is not from saturn.txt", passages[0].ID)
	}
	if docs[0].Metadata["symbol_hint"] != true {
		t.Error("saturn.txt should carry a symbol hint")
	}
	if domain.ChunkID("saturn.txt", 0) != passages[0].ID {
		t.Errorf("best passage id = %q", passages[0].ID)
	}
}
