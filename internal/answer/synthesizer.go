// Package answer turns a query plus ranked chunks into a final answer with
// cited sources, via either an extractive QA strategy or a generative one.
package answer

import (
	"context"
	"errors"

	"github.com/omnidoc/omnidoc/internal/retrieval"
)

// ErrGenerationService is returned (wrapped) when the answer capability is
// unreachable, errors, or times out. It surfaces to the query caller; there
// is no partial answer.
var ErrGenerationService = errors.New("generation service error")

// previewChars is how much chunk content a source citation shows.
const previewChars = 200

// NoContextAnswer is returned when retrieval produced no relevant chunks.
const NoContextAnswer = "I could not find any relevant information in your documents for that question."

// NoConfidentAnswer is returned by the extractive strategy when every span
// scored at or below the confidence floor.
const NoConfidentAnswer = "I could not find a confident answer in your documents."

// Source cites one retrieved chunk that backed the answer.
type Source struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"documentId"`
	ChunkIndex int    `json:"chunkIndex"`
	Preview    string `json:"preview"`
}

// Result is a synthesized answer with its citations.
type Result struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Strategy produces answer text from a query and ranked chunks. Both the
// extractive and generative strategies implement it; sources are handled by
// the Synthesizer independently of which strategy answered.
type Strategy interface {
	Answer(ctx context.Context, query string, ranked []retrieval.ScoredChunk) (string, error)
}

// Synthesizer assembles the final response for a query.
type Synthesizer struct {
	strategy Strategy
}

// New creates a Synthesizer using the given strategy.
func New(strategy Strategy) *Synthesizer {
	return &Synthesizer{strategy: strategy}
}

// Answer returns the synthesized answer and sources for the ranked chunks.
// With no chunks it short-circuits to the fixed no-context response before
// any model call.
func (s *Synthesizer) Answer(ctx context.Context, query string, ranked []retrieval.ScoredChunk) (Result, error) {
	if len(ranked) == 0 {
		return Result{Text: NoContextAnswer, Sources: []Source{}}, nil
	}

	text, err := s.strategy.Answer(ctx, query, ranked)
	if err != nil {
		return Result{}, err
	}

	return Result{Text: text, Sources: buildSources(ranked)}, nil
}

// buildSources cites every ranked chunk, in rank order.
func buildSources(ranked []retrieval.ScoredChunk) []Source {
	sources := make([]Source, len(ranked))
	for i, c := range ranked {
		sources[i] = Source{
			Filename:   c.Filename,
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Preview:    preview(c.Content),
		}
	}
	return sources
}

// preview returns the first previewChars characters of content, with an
// ellipsis when truncated.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewChars {
		return content
	}
	return string(runes[:previewChars]) + "…"
}
