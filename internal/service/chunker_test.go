package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunker_Chunk(t *testing.T) {
	chunker := NewSentenceChunker()

	t.Run("splits on sentence delimiter", func(t *testing.T) {
		chunks := chunker.Chunk("First sentence. Second sentence. Third")

		require.Len(t, chunks, 3)
		assert.Equal(t, "First sentence", chunks[0].Text)
		assert.Equal(t, "Second sentence", chunks[1].Text)
		assert.Equal(t, "Third", chunks[2].Text)
		for _, c := range chunks {
			assert.Equal(t, 1, c.PageNumber)
		}
	})

	t.Run("sentence opening a new page is tagged with it", func(t *testing.T) {
		chunks := chunker.Chunk("Paris is the capital of France. \n\nBerlin is the capital of Germany.")

		require.Len(t, chunks, 2)
		assert.Equal(t, "Paris is the capital of France", chunks[0].Text)
		assert.Equal(t, 1, chunks[0].PageNumber)
		assert.Equal(t, "Berlin is the capital of Germany.", chunks[1].Text)
		assert.Equal(t, 2, chunks[1].PageNumber)
	})

	t.Run("page break inside a sentence counts toward following chunks", func(t *testing.T) {
		chunks := chunker.Chunk("spans a\n\npage boundary. next sentence.")

		require.Len(t, chunks, 2)
		assert.Equal(t, 1, chunks[0].PageNumber)
		assert.Equal(t, 2, chunks[1].PageNumber)
	})

	t.Run("multiple page breaks advance the counter by their count", func(t *testing.T) {
		chunks := chunker.Chunk("one. \n\n\n\nthree. \n\nfour")

		require.Len(t, chunks, 3)
		assert.Equal(t, 1, chunks[0].PageNumber)
		assert.Equal(t, 3, chunks[1].PageNumber)
		assert.Equal(t, 4, chunks[2].PageNumber)
	})

	t.Run("page numbers are non-decreasing in output order", func(t *testing.T) {
		chunks := chunker.Chunk("a. b\n\nc. d. \n\ne. f\n\n\n\ng.")

		require.NotEmpty(t, chunks)
		for i := 1; i < len(chunks); i++ {
			assert.GreaterOrEqual(t, chunks[i].PageNumber, chunks[i-1].PageNumber)
		}
	})

	t.Run("whitespace-only segments are skipped but their breaks count", func(t *testing.T) {
		chunks := chunker.Chunk("first. \n\n . second")

		require.Len(t, chunks, 2)
		assert.Equal(t, "first", chunks[0].Text)
		assert.Equal(t, 1, chunks[0].PageNumber)
		assert.Equal(t, "second", chunks[1].Text)
		assert.Equal(t, 2, chunks[1].PageNumber)
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		assert.Nil(t, chunker.Chunk(""))
		assert.Nil(t, chunker.Chunk("   \n\n  \t"))
	})

	t.Run("text without delimiter is a single chunk", func(t *testing.T) {
		chunks := chunker.Chunk("no delimiter here")

		require.Len(t, chunks, 1)
		assert.Equal(t, "no delimiter here", chunks[0].Text)
		assert.Equal(t, 1, chunks[0].PageNumber)
	})

	t.Run("custom delimiter and page break", func(t *testing.T) {
		c := &SentenceChunker{Delimiter: "; ", PageBreak: "\f"}
		chunks := c.Chunk("alpha; \fbeta")

		require.Len(t, chunks, 2)
		assert.Equal(t, "alpha", chunks[0].Text)
		assert.Equal(t, 1, chunks[0].PageNumber)
		assert.Equal(t, "beta", chunks[1].Text)
		assert.Equal(t, 2, chunks[1].PageNumber)
	})
}
