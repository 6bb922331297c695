// Package googleEmbedding provides embeddings via the Gemini API.
package googleEmbedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/corpusflower/corpusflower/internal/embedding"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type Client struct {
	genAi      *genai.Client
	model      string
	dimensions int32
	logger     *logger_i.Logger
}

var _ embedding.Provider = (*Client)(nil)

// NewClient builds an explicit embedding client; it is constructed once
// in main and passed down, never memoized process-wide.
func NewClient(ctx context.Context, model, apiKey string, dimensions int) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		genAi:      c,
		model:      model,
		dimensions: int32(dimensions),
		logger:     logger_i.NewLogger("google_embedding"),
	}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: t}},
		})
	}

	result, err := c.genAi.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimensions,
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d inputs",
			len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
