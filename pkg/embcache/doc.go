// Package embcache implements a content-addressed cache for embedding
// vectors.
//
// Entries are keyed by a truncated SHA-256 hash of the exact source text, so
// identical text appearing in different units shares one entry and one
// provider call. The cache is safe for concurrent use, supports optional
// time-to-live expiry (lazy at read time plus an active Cleanup sweep), and
// persists through a pluggable Store: an append-friendly newline-delimited
// JSON file by default, or a Badger database for large corpora.
//
// Persistence failures are never fatal to callers: a cache that cannot load
// behaves as empty, and a failed save is logged and retried on the next call.
package embcache
