// Package detector proposes graph edges with a two-stage pipeline: a cheap
// vector-similarity shortlist followed by an expensive per-pair judgment by
// an LLM oracle. Only pairs the oracle confirms with sufficient strength
// become relationships.
package detector
