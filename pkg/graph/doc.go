// Package graph implements the in-memory knowledge graph: a directed
// multigraph of knowledge units and typed, weighted relationships.
//
// The graph supports direct lookups, unweighted shortest paths, bounded-hop
// neighborhoods, aggregate statistics, and deterministic export projections
// for persistence and visualization. Edges are stored independently of node
// existence on purpose: relationship detection may insert edges before the
// endpoint units have been materialized as nodes.
package graph
