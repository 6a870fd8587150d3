package chunker

import (
	"docchat/internal/domain"
	"docchat/internal/textnorm"
)

const (
	// DefaultMaxLen is the raw window size in characters.
	DefaultMaxLen = 1000
	// Overlap between consecutive windows, fixed regardless of window
	// size.
	Overlap = 200
)

// WindowChunker splits extracted text into overlapping fixed-size
// windows. It cuts on character positions, not sentence or word
// boundaries; the overlap keeps context that straddles a cut
// retrievable from the neighbouring chunk.
type WindowChunker struct {
	maxLen int
}

func NewWindowChunker(maxLen int) *WindowChunker {
	if maxLen <= Overlap {
		maxLen = DefaultMaxLen
	}
	return &WindowChunker{maxLen: maxLen}
}

// Chunk windows the text and normalizes each window. Windows that
// clean down to nothing are dropped; surviving chunks are indexed
// densely from zero. Text no longer than one window yields exactly
// one chunk (subject to normalization).
func (c *WindowChunker) Chunk(text string) []domain.Chunk {
	runes := []rune(text)
	step := c.maxLen - Overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.maxLen
		if end > len(runes) {
			end = len(runes)
		}
		clean := textnorm.Normalize(string(runes[start:end]))
		if clean != "" {
			chunks = append(chunks, domain.Chunk{Text: clean, Index: len(chunks)})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
