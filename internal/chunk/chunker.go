// Package chunk splits long corpus text into bounded, overlapping segments
// for embedding. Splitting is heuristic and never calls out of process.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk size defaults (based on 2025 RAG research)
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	CharsPerToken         = 4   // Rough approximation: 4 chars = 1 token
)

// Options configures the text chunker.
type Options struct {
	// MaxTokens is the maximum estimated tokens per chunk (default: 512).
	MaxTokens int
	// OverlapTokens is the estimated-token overlap between adjacent chunks
	// (default: 64). Clamped below MaxTokens so every chunk makes progress.
	OverlapTokens int
}

// Chunker splits arbitrary text at the largest structural boundary that fits
// within the token budget: paragraph break, then sentence break, then
// whitespace, then a hard cut.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// New creates a chunker with the given options, applying defaults for
// unset or out-of-range fields.
func New(opts Options) *Chunker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	if opts.OverlapTokens >= opts.MaxTokens {
		opts.OverlapTokens = opts.MaxTokens / 2
	}
	return &Chunker{
		maxTokens:     opts.MaxTokens,
		overlapTokens: opts.OverlapTokens,
	}
}

// EstimateTokens returns a cheap character-based token estimate.
// It is not a real tokenizer; it exists so chunking decisions never
// depend on an external call.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// NeedsChunking reports whether text exceeds the configured chunk budget.
func (c *Chunker) NeedsChunking(text string) bool {
	return EstimateTokens(text) > c.maxTokens
}

// Chunk splits text into trimmed, overlapping segments.
// Empty or whitespace-only input yields an empty slice, never a blank chunk.
// Text within budget yields exactly one chunk equal to the trimmed input.
func (c *Chunker) Chunk(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}
	}

	if !c.NeedsChunking(trimmed) {
		return []string{trimmed}
	}

	maxChars := c.maxTokens * CharsPerToken
	overlapChars := c.overlapTokens * CharsPerToken

	var chunks []string
	start := 0
	for start < len(trimmed) {
		remaining := trimmed[start:]
		if len(remaining) <= maxChars {
			if piece := strings.TrimSpace(remaining); piece != "" {
				chunks = append(chunks, piece)
			}
			break
		}

		// Byte offsets must never land mid-rune: CJK prose has no spaces
		// or ASCII terminators, so over-budget passages hit the hard cut
		// and a raw slice would corrupt the boundary rune.
		end := runeStart(trimmed, start+maxChars)
		window := trimmed[start:end]
		cut := findSplitPoint(window)

		if piece := strings.TrimSpace(window[:cut]); piece != "" {
			chunks = append(chunks, piece)
		}

		// Step back by the overlap so concepts spanning the boundary land in
		// both chunks, but always advance to avoid looping on dense input.
		next := runeStart(trimmed, start+cut-overlapChars)
		if next <= start {
			next = start + cut
		}
		start = next
	}

	return chunks
}

// findSplitPoint returns the index in window after the best available
// structural boundary. Preference order: paragraph break, sentence break,
// whitespace. Falls back to the full window (hard cut) for pathological
// input with no boundary at all.
func findSplitPoint(window string) int {
	// Paragraph break: split after the blank line.
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 2
	}

	// Sentence break: terminator followed by whitespace, or a newline.
	if idx := lastSentenceEnd(window); idx > 0 {
		return idx
	}

	// Any whitespace. Split past the whole rune; spaces like U+3000 are
	// multi-byte.
	if idx := lastWhitespace(window); idx > 0 {
		_, size := utf8.DecodeRuneInString(window[idx:])
		return idx + size
	}

	// Hard cut. Handles no-space input without hanging.
	return len(window)
}

// lastSentenceEnd finds the end of the last complete sentence in window,
// returning the index just past the terminator, or 0 if none.
func lastSentenceEnd(window string) int {
	best := 0
	for i := len(window) - 2; i > 0; i-- {
		ch := window[i]
		if ch == '\n' {
			best = i + 1
			break
		}
		if (ch == '.' || ch == '!' || ch == '?') && isSpaceByte(window[i+1]) {
			best = i + 1
			break
		}
	}
	return best
}

// lastWhitespace returns the index of the last whitespace rune in window,
// or -1 if none.
func lastWhitespace(window string) int {
	return strings.LastIndexFunc(window, unicode.IsSpace)
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// runeStart backs a byte offset up to the nearest rune boundary at or
// before it, clamped to [0, len(s)].
func runeStart(s string, i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
