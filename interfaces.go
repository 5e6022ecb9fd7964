package noesis

import (
	"context"
	"time"

	"github.com/noesis-kb/noesis/pkg/detector"
	"github.com/noesis-kb/noesis/pkg/embcache"
	"github.com/noesis-kb/noesis/pkg/graph"
	"github.com/noesis-kb/noesis/pkg/search"
	"github.com/noesis-kb/noesis/pkg/types"
)

// This file defines focused interfaces over the Client. The composed Noesis
// interface exists for consumers that want the whole surface; everything else
// should depend on the smallest interface that meets its needs.

// UnitManager registers knowledge units with the retrieval core.
type UnitManager interface {
	// AddUnits validates, embeds, and indexes units.
	AddUnits(ctx context.Context, units ...*types.AtomicUnit) error

	// GetUnit returns a registered unit by id.
	GetUnit(id string) (*types.AtomicUnit, error)
}

// Searcher provides the fused retrieval surface.
type Searcher interface {
	// Search runs the hybrid full-text plus semantic search.
	Search(ctx context.Context, query string, limit int, weights search.Weights) ([]types.HybridResult, error)

	// SearchByTag returns every unit carrying the exact tag.
	SearchByTag(ctx context.Context, tag string) ([]*types.AtomicUnit, error)
}

// RelationshipFinder runs the two-stage relationship detection.
type RelationshipFinder interface {
	// FindRelatedUnits detects relationships from one unit to its nearest
	// neighbors.
	FindRelatedUnits(ctx context.Context, unit *types.AtomicUnit, candidateLimit int, similarityFloor float64) ([]types.Relationship, error)

	// BuildRelationshipGraph runs detection for every unit and links the
	// results into the graph.
	BuildRelationshipGraph(ctx context.Context, units []*types.AtomicUnit) (map[string][]types.Relationship, *detector.BuildReport, error)

	// LinkRelationships inserts already-detected relationships as edges.
	LinkRelationships(ctx context.Context, rels []types.Relationship) error
}

// GraphQuerier provides read-only graph traversal.
type GraphQuerier interface {
	// FindShortestPath returns the node ids along a shortest directed path.
	FindShortestPath(from, to string) []string

	// GetNeighborhood expands up to hops levels around center.
	GetNeighborhood(center string, hops int) *graph.Neighborhood

	// GraphStatistics returns aggregate graph measures.
	GraphStatistics() graph.Statistics

	// GraphVisFormat projects the graph for the vis-network renderer.
	GraphVisFormat() *graph.VisFormat
}

// CacheAdmin manages the embedding cache lifecycle.
type CacheAdmin interface {
	// CacheStats snapshots the cache counters.
	CacheStats() embcache.Stats

	// PruneCache drops entries older than maxAge, returning how many.
	PruneCache(maxAge time.Duration) int

	// SaveCache persists the cache to its store.
	SaveCache() error
}

// Noesis is the full surface of the retrieval core.
type Noesis interface {
	UnitManager
	Searcher
	RelationshipFinder
	GraphQuerier
	CacheAdmin

	// Close persists the cache and tears down every provider.
	Close(ctx context.Context) error
}

var _ Noesis = (*Client)(nil)
