package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) *EmbeddingCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewEmbeddingCache(context.Background(), mr.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("cache against miniredis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	want := []float32{0.5, -1.25, 3}
	c.Set(ctx, "pentacle of Saturn", want)

	got, ok := c.Get(ctx, "pentacle of Saturn")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != len(want) {
		t.Fatalf("vector length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMissOnUnknownText(t *testing.T) {
	c := newTestCache(t)
	if _, ok := c.Get(context.Background(), "never stored"); ok {
		t.Error("unexpected cache hit")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *EmbeddingCache
	ctx := context.Background()

	c.Set(ctx, "q", []float32{1})
	if _, ok := c.Get(ctx, "q"); ok {
		t.Error("nil cache reported a hit")
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}

func TestDistinctTextsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Set(ctx, "question one", []float32{1})
	c.Set(ctx, "question two", []float32{2})

	one, _ := c.Get(ctx, "question one")
	two, _ := c.Get(ctx, "question two")
	if len(one) != 1 || len(two) != 1 || one[0] == two[0] {
		t.Errorf("keys collided: %v vs %v", one, two)
	}
}
