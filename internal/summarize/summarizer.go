// Package summarize provides the abstractive summarization model handle used
// by the retrieval layer.
package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultModel is the chat model used for summary generation.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// Summarizer produces a brief abstractive summary of a text within word
// bounds.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
	Model() string
}

// OpenAI generates summaries through a chat completion.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a summarizer with the given OpenAI client.
// Empty model falls back to DefaultModel.
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client:    client,
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
}

// Model returns the model identifier recorded on generated summaries.
func (s *OpenAI) Model() string {
	return s.model
}

// Summarize produces a summary of text between minLen and maxLen words.
func (s *OpenAI) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	truncated := s.truncateContent(text)

	prompt := fmt.Sprintf(`Summarize the following text in between %d and %d words. Respond with the summary only, no preamble.

Text:
%s`, minLen, maxLen, truncated)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: s.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("chat completion returned an empty summary")
	}
	return summary, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (s *OpenAI) truncateContent(content string) string {
	maxChars := s.maxTokens * 4

	if len(content) <= maxChars {
		return content
	}

	log.Printf("Warning: Truncating content from %d to %d characters (estimated %d tokens)",
		len(content), maxChars, s.maxTokens)

	return content[:maxChars]
}
