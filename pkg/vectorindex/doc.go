// Package vectorindex provides nearest-neighbor lookup over unit embeddings.
//
// Index is the pluggable capability: implementations return units ranked by
// descending cosine similarity to a query vector. MemoryIndex is the
// built-in brute-force implementation, adequate for personal-knowledge-base
// corpus sizes and used by all tests; database-backed providers plug in
// behind the same interface.
package vectorindex
