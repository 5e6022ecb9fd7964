package vectorindex

import (
	"context"
	"sync"

	"github.com/noesis-kb/noesis/pkg/types"
	"github.com/noesis-kb/noesis/pkg/utils"
)

// MemoryIndex is a brute-force cosine-similarity index held in memory. Safe
// for concurrent use. Units without an embedding are accepted but never
// returned from a search.
type MemoryIndex struct {
	mu    sync.RWMutex
	units map[string]*types.AtomicUnit
	order []string
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{units: make(map[string]*types.AtomicUnit)}
}

// Upsert registers units, replacing any with the same id.
func (ix *MemoryIndex) Upsert(units ...*types.AtomicUnit) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, u := range units {
		if u == nil || u.ID == "" {
			continue
		}
		if _, exists := ix.units[u.ID]; !exists {
			ix.order = append(ix.order, u.ID)
		}
		ix.units[u.ID] = u
	}
}

// Remove deletes units by id; unknown ids are ignored.
func (ix *MemoryIndex) Remove(ids ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ids {
		if _, ok := ix.units[id]; !ok {
			continue
		}
		delete(ix.units, id)
		for i, oid := range ix.order {
			if oid == id {
				ix.order = append(ix.order[:i], ix.order[i+1:]...)
				break
			}
		}
	}
}

// Len returns the number of registered units.
func (ix *MemoryIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.units)
}

// SearchByEmbedding scans every embedded unit and returns the limit nearest
// by cosine similarity, descending.
func (ix *MemoryIndex) SearchByEmbedding(ctx context.Context, vector []float32, limit int) ([]types.ScoredUnit, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	scored := make([]utils.ScoredItem[*types.AtomicUnit], 0, len(ix.units))
	for _, id := range ix.order {
		u := ix.units[id]
		if len(u.Embedding) == 0 {
			continue
		}
		scored = append(scored, utils.ScoredItem[*types.AtomicUnit]{
			Item:  u,
			Score: utils.CosineSimilarity(vector, u.Embedding),
		})
	}
	ix.mu.RUnlock()

	top := utils.TopKByScore(scored, limit)
	results := make([]types.ScoredUnit, len(top))
	for i, item := range top {
		results[i] = types.ScoredUnit{Unit: item.Item, Score: item.Score}
	}
	return results, nil
}

var _ Index = (*MemoryIndex)(nil)
var _ Upserter = (*MemoryIndex)(nil)
