package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAISummarizer struct {
	client openai.Client
	model  string
}

var _ Summarizer = (*OpenAISummarizer)(nil)

func NewOpenAISummarizer(model, apiKey string) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text, language, title string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return emptySummary(title), nil
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(buildPrompt(text, language, title)),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("openai summarize %q: %w", title, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai summarize %q: empty response", title)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
