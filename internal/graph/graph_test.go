package graph

import (
	"context"
	"testing"

	"github.com/corpusflower/corpusflower/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestUpsertNodeReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.UpsertNode(ctx, "a.pdf", "A", "en"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertNode(ctx, "a.pdf", "A revised", "la"); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(snap.Nodes))
	}
	n := snap.Nodes["a.pdf"]
	if n.Title != "A revised" || n.Language != "la" || n.Type != "document" {
		t.Errorf("node not replaced: %+v", n)
	}
}

func TestEdgeSymmetry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddEdges(ctx, "a.pdf", []Candidate{{ID: "b.pdf", Similarity: 0.8}}); err != nil {
		t.Fatal(err)
	}
	// The reverse direction with a different weight must not create a
	// second edge for the same unordered pair.
	if err := s.AddEdges(ctx, "b.pdf", []Candidate{{ID: "a.pdf", Similarity: 0.3}}); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Edges) != 1 {
		t.Fatalf("expected exactly 1 edge, got %d", len(snap.Edges))
	}
	e := snap.Edges[0]
	if e.Source != "a.pdf" || e.Target != "b.pdf" || e.Weight != 0.8 {
		t.Errorf("first insertion should win: %+v", e)
	}
}

func TestAddEdgesSkipsSelf(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddEdges(ctx, "a.pdf", []Candidate{
		{ID: "a.pdf", Similarity: 1.0},
		{ID: "b.pdf", Similarity: 0.5},
	}); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Edges) != 1 {
		t.Errorf("self edge should be skipped; got %d edges", len(snap.Edges))
	}
}

func TestSnapshotEmpty(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 0 || len(snap.Edges) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}
