// Package retrieval generates embedding vectors and finds the stored chunks
// most similar to a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyText is returned when the sanitized input has no content to embed.
var ErrEmptyText = errors.New("text is empty")

// ErrEmbeddingService is returned (wrapped) when the embedding backend is
// unreachable, errors, or times out. Callers may retry.
var ErrEmbeddingService = errors.New("embedding service error")

// embedTimeout bounds a single embedding call.
const embedTimeout = 30 * time.Second

// batchConcurrency bounds concurrent embedding calls within one batch.
const batchConcurrency = 4

// EmbeddingClient is the capability that maps text to a fixed-length vector.
// *ollama.Client satisfies it.
type EmbeddingClient interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

// Embedder normalizes text and obtains vectors from the embedding capability.
type Embedder struct {
	client EmbeddingClient
	model  string
}

// NewEmbedder creates an Embedder using the given client and model name.
func NewEmbedder(client EmbeddingClient, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// sanitize collapses whitespace runs into single spaces and trims the result.
func sanitize(text string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}

// Embed returns the embedding vector for a single text. Fails with
// ErrEmptyText when the sanitized text is empty and with a wrapped
// ErrEmbeddingService when the backend is unreachable or times out.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := sanitize(text)
	if clean == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vec, err := e.client.Embed(ctx, e.model, clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	return vec, nil
}

// BatchResult is the outcome of embedding one entry of a batch: either a
// vector or the per-entry failure cause.
type BatchResult struct {
	Vector []float32
	Err    error
}

// EmbedBatch embeds texts concurrently (bounded) and returns one result per
// input, in input order. Individual failures are recorded in the matching
// result rather than aborting the batch; callers must tolerate partial
// batches. Returns nil for empty input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) []BatchResult {
	if len(texts) == 0 {
		return nil
	}

	results := make([]BatchResult, len(texts))
	g := new(errgroup.Group)
	g.SetLimit(batchConcurrency)

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			results[i] = BatchResult{Vector: vec, Err: err}
			return nil
		})
	}

	// Goroutines record failures per entry and never return an error.
	g.Wait()
	return results
}
