package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/omnidoc/omnidoc/internal/storage"
)

// DefaultTopK is the default number of chunks returned per query.
const DefaultTopK = 8

// DefaultMinSimilarity is the default relevance floor. Results must score
// strictly above it; the permissive zero default matches the system's
// observable retrieval behavior and is configurable, not hard-coded.
const DefaultMinSimilarity = 0.0

// ChunkSource provides candidate chunks for scoring. *storage.Store satisfies it.
type ChunkSource interface {
	GetChunks(ctx context.Context, documentIDs []string) ([]storage.Chunk, error)
}

// ScoredChunk is a chunk with its cosine similarity to the query.
type ScoredChunk struct {
	storage.Chunk
	Similarity float64
}

// Retriever ranks stored chunks by similarity to a query embedding.
type Retriever struct {
	source        ChunkSource
	topK          int
	minSimilarity float64
}

// NewRetriever creates a Retriever over the given chunk source. topK <= 0
// falls back to DefaultTopK; minSimilarity below -1 falls back to the default
// floor.
func NewRetriever(source ChunkSource, topK int, minSimilarity float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity < -1 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Retriever{source: source, topK: topK, minSimilarity: minSimilarity}
}

// Retrieve returns up to k chunks scoring strictly above the relevance floor,
// sorted by similarity descending (ties keep store order). documentIDs, when
// non-empty, restricts candidates to those documents. k <= 0 uses the
// configured top-K. An empty result means "no relevant context", not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, documentIDs []string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = r.topK
	}

	candidates, err := r.source.GetChunks(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		sim := Cosine(queryEmbedding, c.Embedding)
		if sim <= r.minSimilarity {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
