// Package types defines the core data model shared across the noesis
// retrieval and relationship layer.
//
// The central entity is AtomicUnit, the smallest persisted knowledge record
// (an insight, code snippet, question, reference, or decision). Units are
// produced by the external ingestion pipeline; this module consumes them,
// attaches embeddings, links them with Relationship records, and ranks them
// in search results.
package types
