package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"ragchat/internal/config"
	"ragchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shortEmbedder struct{ err error }

func (s shortEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return [][]float32{{1}}, nil
}

func (s shortEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1}, s.err
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestHashing_UnitLengthAndDeterministic(t *testing.T) {
	h := NewHashing(64)
	a := h.Embed("The quick brown fox")
	b := h.Embed("the QUICK brown fox!")

	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Equal(t, a, b)
}

func TestHashing_EmptyTextHasDirection(t *testing.T) {
	v := NewHashing(8).Embed("   ")
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}

func TestHashing_SimilarTextsAreCloser(t *testing.T) {
	h := NewHashing(512)
	query := h.Embed("capital of france")
	near := h.Embed("paris is the capital of france")
	far := h.Embed("bananas grow in tropical climates")

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestNewEmbedder_Hashing(t *testing.T) {
	e, err := NewEmbedder(context.Background(), &config.LLMConfig{Provider: config.ProviderHashing, Dimension: 32})
	require.NoError(t, err)

	vecs, err := e.EmbedDocuments(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 32)

	q, err := e.EmbedQuery(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, vecs[0], q)
}

func TestNewEmbedder_MissingKey(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.LLMConfig{Provider: config.ProviderOpenAI, KeyEnv: "RAGCHAT_UNSET"})
	assert.Error(t, err)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.LLMConfig{Provider: "ollama-ish", Key: "k"})
	assert.Error(t, err)
}

func TestEmbedChunks(t *testing.T) {
	e, err := NewHashingEmbedder(16)
	require.NoError(t, err)
	chunks := []models.Chunk{{Ordinal: 0, Content: "a b"}, {Ordinal: 1, Content: "c d"}}

	vecs, err := EmbedChunks(context.Background(), e, chunks)
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestEmbedChunks_CountMismatch(t *testing.T) {
	chunks := []models.Chunk{{Content: "a"}, {Content: "b"}}
	_, err := EmbedChunks(context.Background(), shortEmbedder{}, chunks)
	assert.Error(t, err)
}

func TestEmbedChunks_ProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := EmbedChunks(context.Background(), shortEmbedder{err: boom}, []models.Chunk{{Content: "a"}})
	assert.ErrorIs(t, err, boom)
}
