package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", 100))
}

func TestChunkText_SingleChunk(t *testing.T) {
	chunks := ChunkText("One sentence. Another sentence.", 1000)
	assert.Len(t, chunks, 1)
}

func TestChunkText_SplitsAtSentenceBoundaries(t *testing.T) {
	text := "Sentence one is here. Sentence two is here. Sentence three is here."
	chunks := ChunkText(text, 25)

	assert.Greater(t, len(chunks), 1)
	assert.Contains(t, chunks[0], "Sentence one is here.")
}
