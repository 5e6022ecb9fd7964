package oracle

import (
	"context"

	"github.com/noesis-kb/noesis/pkg/types"
)

// Verdict is the structured decision the oracle must return for a candidate
// pair.
type Verdict struct {
	IsRelated        bool    `json:"isRelated"`
	RelationshipType string  `json:"relationshipType"`
	Strength         float64 `json:"strength"`
	Explanation      string  `json:"explanation"`
}

// Client judges the relationship between two units. Judge returns the raw
// model output; callers run it through ParseVerdict.
type Client interface {
	Judge(ctx context.Context, a, b *types.AtomicUnit) (string, error)
	Close() error
}

// Config holds provider-agnostic oracle settings.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}
