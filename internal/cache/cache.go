// Package cache stores query embeddings in redis so repeated questions
// skip the embedding round trip. The cache is best-effort: a nil client
// or redis outage silently degrades to direct provider calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger_i.Logger
}

// NewEmbeddingCache dials redis; a failed ping returns an error so the
// caller can decide to run without a cache.
func NewEmbeddingCache(ctx context.Context, addr string, ttl time.Duration) (*EmbeddingCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &EmbeddingCache{
		client: client,
		ttl:    ttl,
		logger: logger_i.NewLogger("embedding_cache"),
	}, nil
}

func (c *EmbeddingCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the cached vector for a query text, if present. Safe on a
// nil receiver.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache get failed", "error", err)
		}
		return nil, false
	}
	vec := decode(raw)
	if vec == nil {
		return nil, false
	}
	return vec, true
}

// Set stores a vector under the query text. Failures are logged and
// dropped.
func (c *EmbeddingCache) Set(ctx context.Context, text string, vector []float32) {
	if c == nil || c.client == nil || len(vector) == 0 {
		return
	}
	if err := c.client.Set(ctx, key(text), encode(vector), c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", "error", err)
	}
}

func key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "qemb:" + hex.EncodeToString(sum[:])
}

func encode(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decode(raw []byte) []float32 {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
