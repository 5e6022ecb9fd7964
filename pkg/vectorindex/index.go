package vectorindex

import (
	"context"

	"github.com/noesis-kb/noesis/pkg/types"
)

// Index is a nearest-neighbor provider over unit embeddings. The index holds
// read references to units; it never mutates them.
type Index interface {
	// SearchByEmbedding returns up to limit units ranked by descending
	// cosine similarity to vector.
	SearchByEmbedding(ctx context.Context, vector []float32, limit int) ([]types.ScoredUnit, error)
}

// Upserter is implemented by indexes that accept unit registration.
type Upserter interface {
	Upsert(units ...*types.AtomicUnit)
	Remove(ids ...string)
	Len() int
}
