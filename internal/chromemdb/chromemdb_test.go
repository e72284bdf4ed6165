package chromemdb

import (
	"context"
	"fmt"
	"testing"

	"ragchat/internal/embedding"
	"ragchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, contents ...string) (*Index, *embedding.Hashing) {
	t.Helper()
	h := embedding.NewHashing(128)
	chunks := make([]models.Chunk, len(contents))
	vectors := make([][]float32, len(contents))
	for i, c := range contents {
		chunks[i] = models.Chunk{ID: fmt.Sprintf("chunk-%d", i), Source: "doc.txt", Ordinal: i, Content: c}
		vectors[i] = h.Embed(c)
	}
	idx, err := NewIndex(context.Background(), "test", chunks, vectors)
	require.NoError(t, err)
	return idx, h
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx, h := buildIndex(t,
		"bananas grow in tropical climates",
		"paris is the capital of france",
		"the eiffel tower is in paris",
	)

	matches, err := idx.Search(context.Background(), h.Embed("what is the capital of france"), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Chunk.Ordinal)
	assert.Equal(t, "doc.txt", matches[0].Chunk.Source)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestIndex_KClampedToSize(t *testing.T) {
	idx, h := buildIndex(t, "one", "two", "three")

	matches, err := idx.Search(context.Background(), h.Embed("one"), 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Equal(t, 3, idx.Len())
}

func TestIndex_TiesByOrdinal(t *testing.T) {
	idx, h := buildIndex(t, "same text", "same text", "same text")

	matches, err := idx.Search(context.Background(), h.Embed("same text"), 3)
	require.NoError(t, err)
	for i, m := range matches {
		assert.Equal(t, i, m.Chunk.Ordinal)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx, _ := buildIndex(t, "one")
	_, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestNewIndex_Invalid(t *testing.T) {
	_, err := NewIndex(context.Background(), "empty", nil, nil)
	assert.Error(t, err)

	chunks := []models.Chunk{{ID: "a", Content: "a"}}
	_, err = NewIndex(context.Background(), "short", chunks, nil)
	assert.Error(t, err)
}

func TestIndex_Close(t *testing.T) {
	idx, _ := buildIndex(t, "one")
	assert.NoError(t, idx.Close(context.Background()))
}
