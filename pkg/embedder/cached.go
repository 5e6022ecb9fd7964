package embedder

import (
	"context"

	"github.com/noesis-kb/noesis/pkg/embcache"
)

// Cached wraps a Client with the embedding cache: lookups go to the cache
// first and only the misses reach the underlying provider. Provider results
// are written back under the exact text that produced them.
type Cached struct {
	client Client
	cache  *embcache.Cache
	model  string
}

// NewCached wraps client with cache. The model string is recorded on every
// cache entry for bookkeeping.
func NewCached(client Client, cache *embcache.Cache, model string) *Cached {
	return &Cached{client: client, cache: cache, model: model}
}

// Embed returns one vector per text, serving from cache where possible and
// batching the remaining misses into a single provider call.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, r := range c.cache.BatchGet(texts) {
		if r.Cached {
			vectors[i] = r.Embedding
		} else {
			missTexts = append(missTexts, texts[i])
			missIdx = append(missIdx, i)
		}
	}

	if len(missTexts) > 0 {
		fresh, err := c.client.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, v := range fresh {
			vectors[missIdx[j]] = v
			c.cache.Set(missTexts[j], v, c.model, 0)
		}
	}

	return vectors, nil
}

// EmbedSingle embeds one text through the cache.
func (c *Cached) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.client.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v, c.model, 0)
	return v, nil
}

// Dimensions reports the wrapped client's vector width.
func (c *Cached) Dimensions() int { return c.client.Dimensions() }

// Close closes the wrapped client. The cache is owned by the caller.
func (c *Cached) Close() error { return c.client.Close() }
