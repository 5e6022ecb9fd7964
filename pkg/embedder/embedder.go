package embedder

import (
	"context"
	"errors"
)

// ErrNoEmbedding is returned when a provider responds without any vectors.
var ErrNoEmbedding = errors.New("no embedding returned")

// Config holds provider-agnostic embedder settings.
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	BatchSize  int
}

// Client generates embedding vectors for text.
type Client interface {
	// Embed returns one vector per input text, positionally.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle is a convenience wrapper for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions reports the vector width, or 0 when unknown.
	Dimensions() int
	Close() error
}
