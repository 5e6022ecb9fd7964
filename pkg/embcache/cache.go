package embcache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
	"unicode/utf16"
)

// tokensPerEmbedding is the flat token cost assumed for one embedding call
// when projecting tokens saved. A heuristic, not metered usage.
const tokensPerEmbedding = 100

// HashText returns the cache key for text: SHA-256 over the exact bytes,
// truncated to 16 bytes and hex encoded. No normalization is applied here;
// callers decide whether to trim before hashing.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// Entry is one cached embedding record.
type Entry struct {
	TextHash   string    `json:"hash,omitempty"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used,omitempty"`
}

// BatchResult is one positional result of a BatchGet lookup.
type BatchResult struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Cached    bool      `json:"cached"`
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Entries          int     `json:"entries"`
	Hits             uint64  `json:"hits"`
	Misses           uint64  `json:"misses"`
	HitRate          float64 `json:"hit_rate"`
	MemoryBytes      int64   `json:"memory_bytes"`
	EstTokensSaved   uint64  `json:"est_tokens_saved"`
	LastModel        string  `json:"last_model,omitempty"`
	ExpiredEvictions uint64  `json:"expired_evictions"`
}

// Options configures a Cache.
type Options struct {
	// Disabled makes every Get miss and every Set a no-op.
	Disabled bool
	// TTL is the maximum entry age; zero means entries never expire.
	TTL time.Duration
	// Store persists entries across restarts; nil keeps the cache
	// memory-only.
	Store Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Cache is a content-addressed embedding cache. All methods are safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	disabled bool
	ttl      time.Duration
	store    Store
	logger   *slog.Logger
	clock    func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
	lastModel string
}

// New creates a Cache and, when a Store is configured, loads whatever it
// holds. Load failures are logged and leave the cache empty, never returned.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		entries:  make(map[string]*Entry),
		disabled: opts.Disabled,
		ttl:      opts.TTL,
		store:    opts.Store,
		logger:   logger,
		clock:    time.Now,
	}

	if c.store != nil && !c.disabled {
		entries, err := c.store.Load()
		if err != nil {
			c.logger.Warn("embedding cache load failed, starting empty", "error", err)
			return c
		}
		now := c.clock()
		for i := range entries {
			e := entries[i]
			if e.Text == "" || len(e.Embedding) == 0 {
				continue
			}
			if c.ttl > 0 && now.Sub(e.Timestamp) > c.ttl {
				continue
			}
			if e.TextHash == "" {
				e.TextHash = HashText(e.Text)
			}
			c.entries[e.TextHash] = &e
		}
		c.logger.Debug("embedding cache loaded", "entries", len(c.entries))
	}

	return c
}

// Get returns the cached embedding for text, or (nil, false) when the cache
// is disabled, the text is unknown, or the entry has outlived the TTL. An
// expired entry is deleted as a side effect of the lookup.
func (c *Cache) Get(text string) ([]float32, bool) {
	if c.disabled {
		return nil, false
	}

	key := HashText(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.ttl > 0 && c.clock().Sub(entry.Timestamp) > c.ttl {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Embedding, true
}

// Set inserts or overwrites the entry for text. Last write wins.
func (c *Cache) Set(text string, embedding []float32, model string, tokensUsed int) {
	if c.disabled {
		return
	}

	entry := &Entry{
		TextHash:   HashText(text),
		Text:       text,
		Embedding:  embedding,
		Model:      model,
		Timestamp:  c.clock(),
		TokensUsed: tokensUsed,
	}

	c.mu.Lock()
	c.entries[entry.TextHash] = entry
	if model != "" {
		c.lastModel = model
	}
	c.mu.Unlock()
}

// BatchGet looks up every text independently and returns positional results;
// a miss for one text never short-circuits the rest.
func (c *Cache) BatchGet(texts []string) []BatchResult {
	results := make([]BatchResult, len(texts))
	for i, text := range texts {
		embedding, cached := c.Get(text)
		results[i] = BatchResult{Text: text, Embedding: embedding, Cached: cached}
	}
	return results
}

// BatchSet stores embeddings[i] under texts[i]. Extra entries on either side
// are ignored.
func (c *Cache) BatchSet(texts []string, embeddings [][]float32, model string, tokensUsed int) {
	n := len(texts)
	if len(embeddings) < n {
		n = len(embeddings)
	}
	for i := 0; i < n; i++ {
		c.Set(texts[i], embeddings[i], model, tokensUsed)
	}
}

// PruneOldEntries removes entries strictly older than maxAge and returns how
// many were removed.
func (c *Cache) PruneOldEntries(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) > maxAge {
			delete(c.entries, key)
			removed++
		}
	}
	c.evictions += uint64(removed)
	return removed
}

// Cleanup sweeps out every entry past the configured TTL. A no-op without a
// TTL.
func (c *Cache) Cleanup() int {
	if c.ttl <= 0 {
		return 0
	}
	return c.PruneOldEntries(c.ttl)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the current entries through the configured Store. Write
// failures are logged and returned, but callers routinely ignore them; the
// cache stays fully usable.
func (c *Cache) Save() error {
	if c.store == nil || c.disabled {
		return nil
	}

	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, *e)
	}
	c.mu.RUnlock()

	if err := c.store.Save(entries); err != nil {
		c.logger.Warn("embedding cache save failed", "error", err, "entries", len(entries))
		return err
	}
	return nil
}

// Close saves and releases the underlying store.
func (c *Cache) Close() error {
	err := c.Save()
	if c.store != nil {
		if cerr := c.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Stats returns a snapshot of the cache counters. HitRate is zero before the
// first lookup. MemoryBytes estimates each text at its UTF-16 encoded size
// plus 8 bytes per embedding dimension.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var memory int64
	for _, e := range c.entries {
		memory += int64(len(utf16.Encode([]rune(e.Text)))*2 + len(e.Embedding)*8)
	}

	lookups := c.hits + c.misses
	hitRate := 0.0
	if lookups > 0 {
		hitRate = float64(c.hits) / float64(lookups)
	}

	return Stats{
		Entries:          len(c.entries),
		Hits:             c.hits,
		Misses:           c.misses,
		HitRate:          hitRate,
		MemoryBytes:      memory,
		EstTokensSaved:   c.hits * tokensPerEmbedding,
		LastModel:        c.lastModel,
		ExpiredEvictions: c.evictions,
	}
}
