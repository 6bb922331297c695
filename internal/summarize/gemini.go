package summarize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

const systemInstruction = "You are an expert research librarian and cataloger."

type GeminiSummarizer struct {
	client *genai.Client
	model  string
	logger *logger_i.Logger
}

var _ Summarizer = (*GeminiSummarizer)(nil)

func NewGeminiSummarizer(ctx context.Context, model, apiKey string) (*GeminiSummarizer, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiSummarizer{
		client: c,
		model:  model,
		logger: logger_i.NewLogger("summarize_gemini"),
	}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, text, language, title string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return emptySummary(title), nil
	}

	result, err := s.client.Models.GenerateContent(
		ctx,
		s.model,
		genai.Text(buildPrompt(text, language, title)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
			Temperature: genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini summarize %q: %w", title, err)
	}
	return strings.TrimSpace(result.Text()), nil
}
