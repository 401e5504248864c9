// Package chunker splits extracted document text into overlapping,
// sentence-boundary-aware segments sized for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/omnidoc/omnidoc/internal/storage"
)

// DefaultChunkSize is the target chunk size in characters.
const DefaultChunkSize = 1000

// DefaultOverlap is the number of characters shared between consecutive chunks.
const DefaultOverlap = 200

// Chunker produces ordered, overlapping text chunks.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the chunk size or windows never advance.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}

	return c
}

// Chunk splits text into ordered chunks for the given document. Embeddings are
// left nil; they are filled in by the ingestion pipeline. Empty or
// whitespace-only text yields no chunks and no error.
//
// Each window targets the configured chunk size. When the window ends before
// the end of the text, the split point snaps back to the last sentence break
// ('.' or newline) inside the window, but only if that break lies past the
// window's halfway point, so a chunk never shrinks below half the target size.
func (c *Chunker) Chunk(text, documentID, filename string) []storage.Chunk {
	var chunks []storage.Chunk

	start := 0
	index := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			// Never split a multi-byte rune at the window edge.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
		}

		// Snap to the last sentence break past the halfway point.
		if end < len(text) {
			window := text[start:end]
			if brk := strings.LastIndexAny(window, ".\n"); brk > c.size/2 {
				end = start + brk + 1
			}
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, storage.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Content:    content,
				ChunkIndex: index,
				StartChar:  start,
				EndChar:    end,
				Filename:   filename,
			})
			index++
		}

		// The final window reaches the end of the text; overlapping back
		// into it would only re-emit its tail.
		if end == len(text) {
			break
		}

		// Advance with overlap, falling back to the window end when the
		// overlap would stall the scan. The overlap start must also land on
		// a rune boundary.
		next := end - c.overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
