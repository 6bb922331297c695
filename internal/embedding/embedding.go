// Package embedding turns text into vectors through an external
// provider, batching requests and sanitizing input on the way.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

// Provider is the raw embedding backend: one request, vectors in input
// order, fixed dimensionality for a given model.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Batcher splits arbitrary input into bounded batches against a Provider
// and reassembles the results preserving input order. A failed batch is
// fatal to the whole call after bounded retries; partial results are
// never returned.
type Batcher struct {
	provider  Provider
	batchSize int
	retries   int
	backoff   time.Duration
	logger    *logger_i.Logger
}

func NewBatcher(p Provider) *Batcher {
	return &Batcher{
		provider:  p,
		batchSize: config.EmbeddingBatchSize,
		retries:   config.MaxProviderRetries,
		backoff:   config.ProviderRetryBackoff,
		logger:    logger_i.NewLogger("embedding"),
	}
}

// EmbedAll embeds every text, same length and order as the input. An
// empty input returns an empty result without any network call.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	clean := make([]string, len(texts))
	for i, t := range texts {
		clean[i] = Sanitize(t)
	}

	vectors := make([][]float32, 0, len(clean))
	for start := 0; start < len(clean); start += b.batchSize {
		end := start + b.batchSize
		if end > len(clean) {
			end = len(clean)
		}
		batch := clean[start:end]

		result, err := b.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}
		if len(result) != len(batch) {
			return nil, fmt.Errorf("embedding batch at offset %d: got %d vectors for %d inputs",
				start, len(result), len(batch))
		}
		vectors = append(vectors, result...)
	}
	return vectors, nil
}

// EmbedOne is the single-text convenience used at query time.
func (b *Batcher) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

func (b *Batcher) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= b.retries; attempt++ {
		result, err := b.provider.Embed(ctx, batch)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == b.retries {
			break
		}
		wait := b.backoff * time.Duration(attempt)
		b.logger.Warn("embedding request failed, retrying",
			"attempt", attempt, "backoff", wait.String(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// Sanitize strips UTF-16 surrogate code points and any other invalid
// UTF-8. Broken PDFs produce lone surrogates that would crash downstream
// encoders.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToValidUTF8(sb.String(), "")
}
