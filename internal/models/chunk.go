package models

import (
	"context"
	"sort"
)

// Chunk is a contiguous piece of one uploaded document.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Ordinal int    `json:"ordinal"`
	Content string `json:"content"`
}

// Match is a retrieval hit. Higher score means closer.
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// VectorIndex is built once per upload and only read afterwards.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int) ([]Match, error)
	Len() int
	Close(ctx context.Context) error
}

// SortMatches orders by score descending, ties by ordinal.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.Ordinal < matches[j].Chunk.Ordinal
	})
}
