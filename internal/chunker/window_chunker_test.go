package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextProducesSingleChunk(t *testing.T) {
	c := NewWindowChunker(1000)
	chunks := c.Chunk("a perfectly ordinary paragraph that fits in one window")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkSplitsWithOverlap(t *testing.T) {
	// 1500 characters: windows [0,1000) and [800,1500).
	text := strings.Repeat("abcde ", 250)
	c := NewWindowChunker(1000)
	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	// The second window starts 200 characters before the first ends,
	// so its head repeats the first window's tail.
	assert.True(t, strings.HasSuffix(chunks[0].Text, chunks[1].Text[:50]) ||
		strings.Contains(chunks[0].Text, chunks[1].Text[:50]))
}

func TestChunkWindowSpansCoverText(t *testing.T) {
	for _, length := range []int{1, 999, 1000, 1001, 2400, 5000} {
		text := strings.Repeat("x", length)
		c := NewWindowChunker(1000)
		step := 1000 - Overlap
		covered := 0
		for start := 0; start < length; start += step {
			end := start + 1000
			if end > length {
				end = length
			}
			if end > covered {
				covered = end
			}
			if end == length {
				break
			}
		}
		assert.Equal(t, length, covered, "length %d", length)
		_ = c.Chunk(text)
	}
}

func TestChunkDropsEmptyWindows(t *testing.T) {
	c := NewWindowChunker(1000)
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("tiny"))
	assert.Empty(t, c.Chunk(strings.Repeat(" \n\t", 400)))
}

func TestChunkIndexesStayDense(t *testing.T) {
	text := strings.Repeat("some genuinely useful sentence content here. ", 80)
	c := NewWindowChunker(1000)
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, ch.Text)
		assert.LessOrEqual(t, len(ch.Text), 1000)
	}
}

func TestChunkBadMaxLenFallsBackToDefault(t *testing.T) {
	c := NewWindowChunker(0)
	assert.Equal(t, DefaultMaxLen, c.maxLen)
	c = NewWindowChunker(Overlap)
	assert.Equal(t, DefaultMaxLen, c.maxLen)
}
