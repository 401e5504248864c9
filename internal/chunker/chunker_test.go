package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk_LongTextOverlaps(t *testing.T) {
	// 2500 chars with no sentence breaks: windows fall at the raw size.
	text := strings.Repeat("a", 2500)

	c := New()
	chunks := c.Chunk(text, "doc-1", "a.txt")

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d: index = %d, want %d", i, ch.ChunkIndex, i)
		}
		if ch.DocumentID != "doc-1" {
			t.Errorf("chunk %d: documentID = %q", i, ch.DocumentID)
		}
		if ch.Filename != "a.txt" {
			t.Errorf("chunk %d: filename = %q", i, ch.Filename)
		}
		if ch.ID == "" {
			t.Errorf("chunk %d: missing ID", i)
		}
		if ch.Embedding != nil {
			t.Errorf("chunk %d: embedding should be nil before ingestion", i)
		}
	}

	// Consecutive windows share the configured overlap.
	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].EndChar - chunks[i].StartChar
		if overlap != DefaultOverlap {
			t.Errorf("overlap between chunk %d and %d = %d, want %d", i-1, i, overlap, DefaultOverlap)
		}
		if chunks[i].StartChar <= chunks[i-1].StartChar {
			t.Errorf("chunk %d start %d not after chunk %d start %d",
				i, chunks[i].StartChar, i-1, chunks[i-1].StartChar)
		}
	}

	last := chunks[len(chunks)-1]
	if last.EndChar != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndChar, len(text))
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New()
	chunks := c.Chunk("short document text", "doc-1", "s.txt")

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "short document text" {
		t.Errorf("content = %q", chunks[0].Content)
	}
	if chunks[0].StartChar != 0 || chunks[0].EndChar != 19 {
		t.Errorf("bounds = [%d, %d), want [0, 19)", chunks[0].StartChar, chunks[0].EndChar)
	}
}

func TestChunk_EmptyAndWhitespace(t *testing.T) {
	c := New()

	if got := c.Chunk("", "doc-1", "e.txt"); len(got) != 0 {
		t.Errorf("empty text: got %d chunks, want 0", len(got))
	}
	if got := c.Chunk("   \n\t  \n ", "doc-1", "w.txt"); len(got) != 0 {
		t.Errorf("whitespace text: got %d chunks, want 0", len(got))
	}
}

func TestChunk_SnapsToSentenceBreak(t *testing.T) {
	// A period at position 799 (past the halfway point of a 1000-char
	// window) pulls the window end forward to just after it.
	text := strings.Repeat("a", 799) + "." + strings.Repeat("b", 1000)

	c := New()
	chunks := c.Chunk(text, "doc-1", "p.txt")

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if chunks[0].EndChar != 800 {
		t.Errorf("first chunk ends at %d, want 800 (after the period)", chunks[0].EndChar)
	}
	if !strings.HasSuffix(chunks[0].Content, ".") {
		t.Errorf("first chunk should end with the period, got %q", chunks[0].Content[len(chunks[0].Content)-10:])
	}
	if chunks[1].StartChar != 600 {
		t.Errorf("second chunk starts at %d, want 600", chunks[1].StartChar)
	}
}

func TestChunk_IgnoresEarlyBreak(t *testing.T) {
	// A period before the halfway point must not shrink the window.
	text := strings.Repeat("a", 300) + "." + strings.Repeat("b", 1500)

	c := New()
	chunks := c.Chunk(text, "doc-1", "p.txt")

	if chunks[0].EndChar != DefaultChunkSize {
		t.Errorf("first chunk ends at %d, want %d", chunks[0].EndChar, DefaultChunkSize)
	}
}

func TestChunk_ContentIsTrimmed(t *testing.T) {
	text := "  hello world  "

	c := New()
	chunks := c.Chunk(text, "doc-1", "t.txt")

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "hello world" {
		t.Errorf("content = %q, want trimmed", chunks[0].Content)
	}
	// Offsets still describe the untrimmed window.
	if chunks[0].StartChar != 0 || chunks[0].EndChar != len(text) {
		t.Errorf("bounds = [%d, %d), want [0, %d)", chunks[0].StartChar, chunks[0].EndChar, len(text))
	}
}

func TestChunk_IndexesAreContiguous(t *testing.T) {
	// Newline-separated paragraphs over several windows.
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString(strings.Repeat("word ", 30))
		sb.WriteString(".\n")
	}

	c := New()
	chunks := c.Chunk(sb.String(), "doc-1", "n.txt")

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, ch.ChunkIndex)
		}
	}
}

func TestChunk_NeverSplitsRunes(t *testing.T) {
	// Three-byte runes with no sentence breaks: the raw window size (not a
	// multiple of three) would land mid-rune at every edge.
	text := strings.Repeat("☃", 400)

	c := New(WithChunkSize(250), WithOverlap(50))
	chunks := c.Chunk(text, "doc-1", "u.txt")

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Errorf("chunk %d content is not valid UTF-8", i)
		}
		if ch.StartChar < len(text) && !utf8.RuneStart(text[ch.StartChar]) {
			t.Errorf("chunk %d starts mid-rune at %d", i, ch.StartChar)
		}
		if ch.EndChar < len(text) && !utf8.RuneStart(text[ch.EndChar]) {
			t.Errorf("chunk %d ends mid-rune at %d", i, ch.EndChar)
		}
	}
	if last := chunks[len(chunks)-1]; last.EndChar != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndChar, len(text))
	}
}

func TestNew_OverlapClamped(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(100))
	if c.overlap != 25 {
		t.Errorf("overlap = %d, want clamp to size/4 = 25", c.overlap)
	}

	c = New(WithChunkSize(100), WithOverlap(150))
	if c.overlap != 25 {
		t.Errorf("overlap = %d, want clamp to size/4 = 25", c.overlap)
	}
}

func TestChunk_CustomSize(t *testing.T) {
	text := strings.Repeat("x", 250)

	c := New(WithChunkSize(100), WithOverlap(20))
	chunks := c.Chunk(text, "doc-1", "c.txt")

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1].StartChar != 80 {
		t.Errorf("second chunk starts at %d, want 80", chunks[1].StartChar)
	}
}
