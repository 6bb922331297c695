package embedding

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

type mockProvider struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls     int
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	return m.embedFunc(ctx, texts)
}

// echoes each input's global position into the vector so order mixups
// are visible.
func positional(start *int) func(ctx context.Context, texts []string) ([][]float32, error) {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(*start)}
			*start++
		}
		return out, nil
	}
}

func newTestBatcher(p Provider, batchSize int) *Batcher {
	b := NewBatcher(p)
	b.batchSize = batchSize
	b.backoff = time.Millisecond
	return b
}

func TestEmbedAllEmptyInputNoCall(t *testing.T) {
	p := &mockProvider{embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, nil
	}}
	b := newTestBatcher(p, 4)

	vectors, err := b.EmbedAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedAll failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
	if p.calls != 0 {
		t.Errorf("expected zero provider calls, got %d", p.calls)
	}
}

func TestEmbedAllPreservesOrderAcrossBatches(t *testing.T) {
	pos := 0
	p := &mockProvider{embedFunc: positional(&pos)}
	b := newTestBatcher(p, 3)

	texts := make([]string, 10) // 4 batches: 3+3+3+1
	for i := range texts {
		texts[i] = "text " + strconv.Itoa(i)
	}

	vectors, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedAll failed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors for %d inputs", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Errorf("vector %d carries position %v; order not preserved", i, v[0])
		}
	}
	if p.calls != 4 {
		t.Errorf("expected 4 batch calls, got %d", p.calls)
	}
}

func TestEmbedAllBatchErrorIsFatal(t *testing.T) {
	p := &mockProvider{embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service down")
	}}
	b := newTestBatcher(p, 2)

	if _, err := b.EmbedAll(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Fatal("expected error from failing batch")
	}
	// Bounded retries, then fatal: no more calls than the retry budget.
	if p.calls != b.retries {
		t.Errorf("expected %d attempts, got %d", b.retries, p.calls)
	}
}

func TestEmbedAllRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	p := &mockProvider{embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("transient")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1}
		}
		return out, nil
	}}
	b := newTestBatcher(p, 8)

	vectors, err := b.EmbedAll(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedAll failed after retry: %v", err)
	}
	if len(vectors) != 2 {
		t.Errorf("got %d vectors, want 2", len(vectors))
	}
}

func TestEmbedAllLengthMismatchRejected(t *testing.T) {
	p := &mockProvider{embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil // always one vector, whatever the input
	}}
	b := newTestBatcher(p, 8)

	if _, err := b.EmbedAll(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on provider length mismatch")
	}
}

func TestSanitizeStripsSurrogates(t *testing.T) {
	// \xed\xa0\x80 is a raw-encoded lone surrogate (U+D800).
	dirty := "clean \xed\xa0\x80 text"
	got := Sanitize(dirty)
	for _, r := range got {
		if r >= 0xD800 && r <= 0xDFFF {
			t.Fatalf("surrogate survived sanitization: %U", r)
		}
	}
	if got == "" {
		t.Fatal("sanitization dropped all content")
	}
}

func TestSanitizeKeepsValidText(t *testing.T) {
	in := "Tiferet — תפארת, ♄ Saturn"
	if got := Sanitize(in); got != in {
		t.Errorf("valid UTF-8 changed: %q -> %q", in, got)
	}
}
