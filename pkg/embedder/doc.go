// Package embedder provides text embedding clients.
//
// The Client interface abstracts over providers: an OpenAI-compatible HTTP
// API or a local EmbedEverything model. Cached wraps any Client with the
// content-addressed embedding cache so repeated text never costs a second
// provider call.
package embedder
