package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"ragchat/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// Index is an in-memory vector index backed by a chromem collection. Every
// build gets its own database, so indexes never share state.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	chunks     map[string]models.Chunk
	dimension  int
}

// NewIndex stores the chunks with their precomputed vectors. Queries always
// carry their own embedding, so the collection never embeds text itself.
func NewIndex(ctx context.Context, collectionName string, chunks []models.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	db := chromem.NewDB()
	c, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &Index{
		db:         db,
		collection: c,
		chunks:     make(map[string]models.Chunk, len(chunks)),
		dimension:  len(vectors[0]),
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != idx.dimension {
			return nil, fmt.Errorf("chunk %d has dimension %d, want %d", chunk.Ordinal, len(vectors[i]), idx.dimension)
		}
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  CreateMetadata(chunk),
			Embedding: vectors[i],
		}
		idx.chunks[chunk.ID] = chunk
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Str("collection", collectionName).Int("documents", c.Count()).Msg("Built in-memory index")
	return idx, nil
}

// meta data will have source filename and chunk ordinal
func CreateMetadata(chunk models.Chunk) map[string]string {
	return map[string]string{
		"source":  chunk.Source,
		"ordinal": strconv.Itoa(chunk.Ordinal),
	}
}

// Search returns the k chunks closest to query by cosine similarity.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]models.Match, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), x.dimension)
	}
	n := x.collection.Count()
	if k <= 0 || n == 0 {
		return nil, nil
	}

	// chromem orders ties arbitrarily, so rank everything and cut after sorting
	results, err := x.collection.QueryWithOptions(ctx, chromem.QueryOptions{QueryEmbedding: query, NResults: n})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]models.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, models.Match{Chunk: x.chunks[r.ID], Score: r.Similarity})
	}
	models.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (x *Index) Len() int {
	return x.collection.Count()
}

// delete collection
func (x *Index) Close(_ context.Context) error {
	if err := x.db.DeleteCollection(x.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
