// Package store persists the knowledge graph to a durable backend. The
// in-memory graph stays authoritative for the process lifetime; the store is
// a write-behind mirror that survives restarts.
package store

import (
	"context"

	"github.com/noesis-kb/noesis/pkg/graph"
)

// Store mirrors graph mutations to a durable backend.
type Store interface {
	// UpsertNodes writes or refreshes the given nodes.
	UpsertNodes(ctx context.Context, nodes []*graph.Node) error
	// UpsertEdges writes or refreshes the given edges.
	UpsertEdges(ctx context.Context, edges []*graph.Edge) error
	// LoadGraph reads the full mirrored graph back into memory.
	LoadGraph(ctx context.Context) (*graph.KnowledgeGraph, error)
	// Clear removes every mirrored node and edge.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}
