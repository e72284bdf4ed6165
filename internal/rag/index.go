package rag

import (
	"context"
	"fmt"

	"ragchat/internal/chromemdb"
	"ragchat/internal/db"
	"ragchat/internal/embedding"
	"ragchat/internal/helper"
	"ragchat/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
)

// Backend stores embedded chunks and returns the searchable index.
type Backend func(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (models.VectorIndex, error)

// MemoryBackend builds a fresh chromem collection per index.
func MemoryBackend() Backend {
	return func(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (models.VectorIndex, error) {
		name, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		idx, err := chromemdb.NewIndex(ctx, name, chunks, vectors)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// PostgresBackend stores each index as its own set of rows in pgvector.
func PostgresBackend(bdb *bun.DB) Backend {
	return func(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (models.VectorIndex, error) {
		idx, err := db.NewIndex(ctx, bdb, chunks, vectors)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// IndexBuilder embeds chunks and hands them to a backend. A failed build
// returns no index.
type IndexBuilder struct {
	embedder embeddings.Embedder
	backend  Backend
}

func NewIndexBuilder(embedder embeddings.Embedder, backend Backend) *IndexBuilder {
	return &IndexBuilder{embedder: embedder, backend: backend}
}

func (b *IndexBuilder) Build(ctx context.Context, chunks []models.Chunk) (models.VectorIndex, error) {
	if len(chunks) == 0 {
		return nil, ErrNoText
	}
	vectors, err := embedding.EmbedChunks(ctx, b.embedder, chunks)
	if err != nil {
		return nil, err
	}
	idx, err := b.backend(ctx, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to store index: %w", err)
	}
	return idx, nil
}
