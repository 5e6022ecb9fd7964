package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noesis-kb/noesis/pkg/embedder"
	"github.com/noesis-kb/noesis/pkg/types"
	"github.com/noesis-kb/noesis/pkg/utils"
	"github.com/noesis-kb/noesis/pkg/vectorindex"
)

// Hybrid fuses a full-text stage and a semantic stage into one ranking.
type Hybrid struct {
	fts          FullTextSearcher
	tags         TagSearcher
	embedder     embedder.Client
	index        vectorindex.Index
	rankConstant int
	logger       *slog.Logger
}

// HybridOptions tunes the fusion.
type HybridOptions struct {
	// RankConstant is the RRF k. Zero means DefaultRankConstant.
	RankConstant int
	// Tags handles SearchByTag. Optional; when nil and the full-text
	// searcher also implements TagSearcher, that implementation is used.
	Tags   TagSearcher
	Logger *slog.Logger
}

// NewHybrid wires the two retrieval stages.
func NewHybrid(fts FullTextSearcher, emb embedder.Client, index vectorindex.Index, opts HybridOptions) *Hybrid {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tags := opts.Tags
	if tags == nil {
		if ts, ok := fts.(TagSearcher); ok {
			tags = ts
		}
	}
	return &Hybrid{
		fts:          fts,
		tags:         tags,
		embedder:     emb,
		index:        index,
		rankConstant: opts.RankConstant,
		logger:       logger,
	}
}

// Search runs the full-text query and the query-embedding generation
// concurrently, then the semantic nearest-neighbor lookup, then fuses both
// rankings with weighted RRF and truncates to limit. Each stage over-fetches
// 2x limit so the fusion has material to re-rank.
//
// FTSScore on a result is a binary presence indicator for the full-text
// stage, SemanticScore the raw cosine similarity when the unit appeared in
// the vector stage. Stage failures propagate; empty stages fuse to an empty
// ranking without error.
func (h *Hybrid) Search(ctx context.Context, query string, limit int, weights Weights) ([]types.HybridResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		return nil, types.ErrInvalidLimit
	}
	weights = weights.orDefault()
	fetch := 2 * limit

	var (
		ftsUnits []*types.AtomicUnit
		queryVec []float32
	)
	errs := utils.Gather(ctx, 2,
		func() error {
			var err error
			ftsUnits, err = h.fts.SearchText(ctx, query, fetch)
			if err != nil {
				return fmt.Errorf("full-text stage: %w", err)
			}
			return nil
		},
		func() error {
			var err error
			queryVec, err = h.embedder.EmbedSingle(ctx, query)
			if err != nil {
				return fmt.Errorf("embedding query: %w", err)
			}
			return nil
		},
	)
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	semantic, err := h.index.SearchByEmbedding(ctx, queryVec, fetch)
	if err != nil {
		return nil, fmt.Errorf("semantic stage: %w", err)
	}

	results := h.fuse(ftsUnits, semantic, weights, limit)
	h.logger.Debug("hybrid search finished",
		"query", query,
		"fts_hits", len(ftsUnits),
		"semantic_hits", len(semantic),
		"results", len(results))
	return results, nil
}

func (h *Hybrid) fuse(ftsUnits []*types.AtomicUnit, semantic []types.ScoredUnit, weights Weights, limit int) []types.HybridResult {
	byID := make(map[string]*types.AtomicUnit, len(ftsUnits)+len(semantic))
	inFTS := make(map[string]bool, len(ftsUnits))
	cosine := make(map[string]float64, len(semantic))

	ftsList := rankedList{weight: weights.FTS, ids: make([]string, 0, len(ftsUnits))}
	for _, u := range ftsUnits {
		ftsList.ids = append(ftsList.ids, u.ID)
		byID[u.ID] = u
		inFTS[u.ID] = true
	}
	semList := rankedList{weight: weights.Semantic, ids: make([]string, 0, len(semantic))}
	for _, s := range semantic {
		semList.ids = append(semList.ids, s.Unit.ID)
		byID[s.Unit.ID] = s.Unit
		cosine[s.Unit.ID] = s.Score
	}

	order, scores := fuseRRF([]rankedList{ftsList, semList}, h.rankConstant)
	if len(order) > limit {
		order = order[:limit]
	}

	results := make([]types.HybridResult, 0, len(order))
	for _, id := range order {
		res := types.HybridResult{
			Unit:          byID[id],
			SemanticScore: cosine[id],
			CombinedScore: scores[id],
		}
		if inFTS[id] {
			res.FTSScore = 1
		}
		results = append(results, res)
	}
	return results
}

// SearchByTag is a pass-through to the tag provider; it takes no part in
// fusion.
func (h *Hybrid) SearchByTag(ctx context.Context, tag string) ([]*types.AtomicUnit, error) {
	if h.tags == nil {
		return nil, fmt.Errorf("no tag searcher configured")
	}
	return h.tags.SearchByTag(ctx, tag)
}
