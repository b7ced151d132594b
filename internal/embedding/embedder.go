// Package embedding provides the OpenAI text-embedding model handle consumed
// by the vector index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension for text-embedding-3-small.
	DefaultDimension = 1536
)

// Embedder generates normalized embeddings for single texts. It retries with
// exponential backoff on rate limit errors; other API errors fail immediately.
type Embedder struct {
	client *Client
	model  string
	dim    int
}

// NewEmbedder creates an Embedder for the given model and dimension.
// Empty model or non-positive dimension fall back to the defaults.
func NewEmbedder(client *Client, model string, dim int) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{
		client: client,
		model:  model,
		dim:    dim,
	}
}

// Dimension returns the fixed vector dimension of the configured model.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Embed generates a normalized embedding for the given text.
// OpenAI embeddings are unit-normalized already; squared Euclidean distance
// over them orders results the same way cosine similarity does.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model:      e.model,
			Dimensions: openai.Int(int64(e.dim)),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // Will retry with backoff
			}
			return backoff.Permanent(err) // Don't retry
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("embedding response contained no data"))
		}

		embedding = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	if len(embedding) != e.dim {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), e.dim)
	}
	return embedding, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but the index stores float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
