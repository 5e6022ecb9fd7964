// Package search implements hybrid retrieval: a full-text stage and a
// semantic nearest-neighbor stage run concurrently and their rankings are
// fused with weighted Reciprocal Rank Fusion. Rank-based fusion is used
// because BM25-like relevance scores and cosine similarities live on
// incomparable scales.
package search
