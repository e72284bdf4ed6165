package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

const DefaultHashingDimension = 256

// Hashing is a bag-of-words embedder that hashes each token into a fixed
// number of buckets. It needs no model and always returns the same vector
// for the same text.
type Hashing struct {
	dim int
}

func NewHashingEmbedder(dim int) (*embeddings.EmbedderImpl, error) {
	return embeddings.NewEmbedder(embeddings.EmbedderClientFunc(NewHashing(dim).CreateEmbedding))
}

func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.Embed(text)
	}
	return out, nil
}

// Embed returns the unit-length vector of text.
func (h *Hashing) Embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		f := fnv.New32a()
		f.Write([]byte(token))
		vec[f.Sum32()%uint32(h.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// a zero vector has no direction
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
