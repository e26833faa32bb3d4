package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestNeedsChunking(t *testing.T) {
	c := New(Options{MaxTokens: 10, OverlapTokens: 2})

	assert.False(t, c.NeedsChunking(strings.Repeat("a", 40))) // exactly 10 tokens
	assert.True(t, c.NeedsChunking(strings.Repeat("a", 41)))
	assert.False(t, c.NeedsChunking(""))
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(Options{})

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t  "))
	// Never a single empty chunk.
	assert.NotNil(t, c.Chunk(""))
}

func TestChunk_WithinBudget(t *testing.T) {
	c := New(Options{MaxTokens: 100})

	text := "  short document about database migrations  "
	chunks := c.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestChunk_SplitsOnParagraphBoundary(t *testing.T) {
	c := New(Options{MaxTokens: 20, OverlapTokens: 0})

	para1 := strings.Repeat("alpha ", 10) // ~60 chars
	para2 := strings.Repeat("beta ", 10)
	text := para1 + "\n\n" + para2

	chunks := c.Chunk(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.TrimSpace(para1), chunks[0])
}

func TestChunk_SplitsOnSentenceBoundary(t *testing.T) {
	c := New(Options{MaxTokens: 15, OverlapTokens: 0})

	text := "The flyway tool manages schema versions. It runs ordered migration scripts against the target database and sentence two continues here."
	chunks := c.Chunk(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0], "."), "first chunk should end at sentence boundary, got %q", chunks[0])
}

func TestChunk_HardCutOnPathologicalInput(t *testing.T) {
	c := New(Options{MaxTokens: 10, OverlapTokens: 2})

	// No whitespace anywhere: must hard-cut, never hang, never emit blanks.
	text := strings.Repeat("x", 200)
	chunks := c.Chunk(text)

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(ch))
		assert.LessOrEqual(t, len(ch), 10*CharsPerToken)
	}
}

func TestChunk_OverlapCarriesBoundaryContext(t *testing.T) {
	c := New(Options{MaxTokens: 20, OverlapTokens: 5})

	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := c.Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The tail of chunk N should reappear at the head of chunk N+1.
	tail := chunks[0][len(chunks[0])-8:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

func TestChunk_MultiByteTextStaysValidUTF8(t *testing.T) {
	c := New(Options{MaxTokens: 10, OverlapTokens: 0})

	// Spaceless CJK prose always reaches the hard-cut path; boundaries
	// must land on rune starts, never mid-sequence.
	text := strings.Repeat("世", 200) // 3-byte rune
	chunks := c.Chunk(text)

	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.True(t, utf8.ValidString(ch), "chunk %d contains invalid UTF-8", i)
		assert.NotEmpty(t, ch)
	}
	// Nothing lost: the chunks reassemble the original text.
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunk_MultiByteOverlapStaysValidUTF8(t *testing.T) {
	c := New(Options{MaxTokens: 10, OverlapTokens: 3})

	text := strings.Repeat("日本語の文章", 40)
	chunks := c.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.True(t, utf8.ValidString(ch), "chunk %d contains invalid UTF-8", i)
	}
}

func TestChunk_IdeographicSpaceBoundary(t *testing.T) {
	c := New(Options{MaxTokens: 10, OverlapTokens: 0})

	// U+3000 is a 3-byte whitespace rune; the whitespace split must step
	// past the whole rune.
	text := strings.Repeat("語句　", 30)
	for i, ch := range c.Chunk(text) {
		assert.True(t, utf8.ValidString(ch), "chunk %d contains invalid UTF-8", i)
		assert.NotEmpty(t, ch)
	}
}

func TestChunk_AllChunksTrimmed(t *testing.T) {
	c := New(Options{MaxTokens: 12, OverlapTokens: 2})

	text := "  one two three.\n\n  four five six.\n\n  seven eight nine.  " + strings.Repeat("filler ", 30)
	for _, ch := range c.Chunk(text) {
		assert.Equal(t, strings.TrimSpace(ch), ch)
		assert.NotEmpty(t, ch)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultMaxChunkTokens, c.maxTokens)

	// Overlap >= max is clamped so chunking always advances.
	c = New(Options{MaxTokens: 10, OverlapTokens: 50})
	assert.Less(t, c.overlapTokens, c.maxTokens)
}
