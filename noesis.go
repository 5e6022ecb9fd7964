package noesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/noesis-kb/noesis/pkg/config"
	"github.com/noesis-kb/noesis/pkg/detector"
	"github.com/noesis-kb/noesis/pkg/embcache"
	"github.com/noesis-kb/noesis/pkg/embedder"
	"github.com/noesis-kb/noesis/pkg/graph"
	"github.com/noesis-kb/noesis/pkg/oracle"
	"github.com/noesis-kb/noesis/pkg/search"
	"github.com/noesis-kb/noesis/pkg/store"
	"github.com/noesis-kb/noesis/pkg/types"
	"github.com/noesis-kb/noesis/pkg/vectorindex"
)

// ErrUnitNotFound is returned when a lookup names an unknown unit id.
var ErrUnitNotFound = errors.New("unit not found")

// Client wires the retrieval core together: the embedding cache, the vector
// index, the full-text index, the knowledge graph, the relationship detector,
// and the hybrid searcher, all constructed once and shared.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger

	cache    *embcache.Cache
	embedder embedder.Client
	oracle   oracle.Client
	index    *vectorindex.MemoryIndex
	fts      *search.MemoryFTS
	hybrid   *search.Hybrid
	detector *detector.Detector
	graph    *graph.KnowledgeGraph
	mirror   store.Store

	mu    sync.RWMutex
	units map[string]*types.AtomicUnit
}

// Components holds pre-built dependencies for NewClientWithComponents.
type Components struct {
	// Cache is the embedding cache. Required.
	Cache *embcache.Cache
	// Embedder generates embedding vectors. Wrap it with embedder.NewCached
	// to route it through Cache; NewClient does this automatically.
	Embedder embedder.Client
	// Oracle judges candidate relationship pairs.
	Oracle oracle.Client
	// Mirror optionally persists the graph to a durable backend.
	Mirror store.Store
}

// NewClient constructs a Client from configuration, building every provider
// it names. A nil cfg loads the default configuration; a nil logger falls
// back to slog.Default.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := buildCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	comps := Components{
		Cache:    cache,
		Embedder: embedder.NewCached(provider, cache, cfg.Embedding.Model),
		Oracle:   buildOracle(cfg),
	}

	if cfg.GraphStore.Enabled {
		mirror, err := store.NewNeo4jStore(
			cfg.GraphStore.URI,
			cfg.GraphStore.Username,
			cfg.GraphStore.Password,
			cfg.GraphStore.Database,
		)
		if err != nil {
			return nil, fmt.Errorf("connecting graph store: %w", err)
		}
		comps.Mirror = mirror
	}

	return NewClientWithComponents(cfg, logger, comps), nil
}

// NewClientWithComponents wires a Client around caller-supplied providers.
// Use it to inject fakes in tests or providers NewClient does not know.
func NewClientWithComponents(cfg *config.Config, logger *slog.Logger, comps Components) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	index := vectorindex.NewMemoryIndex()
	fts := search.NewMemoryFTS()
	hybrid := search.NewHybrid(fts, comps.Embedder, index, search.HybridOptions{
		RankConstant: cfg.Search.RankConstant,
		Logger:       logger,
	})

	return &Client{
		cfg:      cfg,
		logger:   logger,
		cache:    comps.Cache,
		embedder: comps.Embedder,
		oracle:   comps.Oracle,
		index:    index,
		fts:      fts,
		hybrid:   hybrid,
		detector: detector.New(comps.Embedder, index, comps.Oracle, logger),
		graph:    graph.New(),
		mirror:   comps.Mirror,
		units:    make(map[string]*types.AtomicUnit),
	}
}

func buildCache(cfg *config.Config, logger *slog.Logger) (*embcache.Cache, error) {
	var st embcache.Store
	if cfg.Cache.Path != "" && !cfg.Cache.Disabled {
		switch cfg.Cache.Store {
		case "badger":
			badgerStore, err := embcache.NewBadgerStore(cfg.Cache.Path, logger)
			if err != nil {
				return nil, fmt.Errorf("opening badger cache store: %w", err)
			}
			st = badgerStore
		default:
			st = embcache.NewFileStore(cfg.Cache.Path, logger)
		}
	}
	return embcache.New(embcache.Options{
		Disabled: cfg.Cache.Disabled,
		TTL:      time.Duration(cfg.Cache.TTLHours) * time.Hour,
		Store:    st,
		Logger:   logger,
	}), nil
}

func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	embCfg := embedder.Config{
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	}
	switch cfg.Embedding.Provider {
	case "openai":
		return embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embCfg), nil
	default:
		return embedder.NewEmbedEverythingClient(embCfg)
	}
}

func buildOracle(cfg *config.Config) oracle.Client {
	var orc oracle.Client = oracle.NewOpenAIClient(cfg.Oracle.APIKey, oracle.Config{
		Model:       cfg.Oracle.Model,
		BaseURL:     cfg.Oracle.BaseURL,
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
	})

	retryCfg := oracle.DefaultRetryConfig()
	if cfg.Oracle.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.Oracle.MaxRetries
	}
	orc = oracle.NewRetryClient(orc, retryCfg)

	if cfg.CircuitBreaker.Enabled {
		breakerCfg := oracle.DefaultBreakerConfig()
		if cfg.CircuitBreaker.MaxRequests > 0 {
			breakerCfg.MaxRequests = cfg.CircuitBreaker.MaxRequests
		}
		if cfg.CircuitBreaker.Interval > 0 {
			breakerCfg.Interval = time.Duration(cfg.CircuitBreaker.Interval) * time.Second
		}
		if cfg.CircuitBreaker.Timeout > 0 {
			breakerCfg.Timeout = time.Duration(cfg.CircuitBreaker.Timeout) * time.Second
		}
		if cfg.CircuitBreaker.ReadyToTripRatio > 0 {
			breakerCfg.ReadyToTripRatio = cfg.CircuitBreaker.ReadyToTripRatio
		}
		orc = oracle.NewBreakerClient(orc, breakerCfg, "oracle")
	}
	return orc
}

// AddUnits validates, embeds, and registers units in the vector index, the
// full-text index, and the knowledge graph. Units that already carry an
// embedding are not re-embedded; the rest are embedded in one batched call
// through the cache.
func (c *Client) AddUnits(ctx context.Context, units ...*types.AtomicUnit) error {
	var missing []*types.AtomicUnit
	var missingTexts []string
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("unit %q: %w", u.ID, err)
		}
		if len(u.Embedding) == 0 {
			missing = append(missing, u)
			missingTexts = append(missingTexts, u.Content)
		}
	}

	if len(missing) > 0 {
		vectors, err := c.embedder.Embed(ctx, missingTexts)
		if err != nil {
			return fmt.Errorf("embedding units: %w", err)
		}
		for i, u := range missing {
			u.Embedding = vectors[i]
		}
	}

	c.mu.Lock()
	for _, u := range units {
		c.units[u.ID] = u
	}
	c.mu.Unlock()

	c.index.Upsert(units...)
	c.fts.Index(units...)
	for _, u := range units {
		c.graph.AddNode(graph.NodeFromUnit(u))
	}

	if c.mirror != nil {
		nodes := make([]*graph.Node, len(units))
		for i, u := range units {
			nodes[i] = graph.NodeFromUnit(u)
		}
		if err := c.mirror.UpsertNodes(ctx, nodes); err != nil {
			return fmt.Errorf("mirroring nodes: %w", err)
		}
	}

	c.logger.Debug("units registered", "count", len(units), "embedded", len(missing))
	return nil
}

// GetUnit returns the registered unit with the given id.
func (c *Client) GetUnit(id string) (*types.AtomicUnit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	return u, nil
}

// Search runs the hybrid full-text plus semantic search. Zero weights fall
// back to the configured defaults.
func (c *Client) Search(ctx context.Context, query string, limit int, weights search.Weights) ([]types.HybridResult, error) {
	if weights.FTS == 0 && weights.Semantic == 0 {
		weights = search.Weights{
			FTS:      c.cfg.Search.FTSWeight,
			Semantic: c.cfg.Search.SemanticWeight,
		}
	}
	return c.hybrid.Search(ctx, query, limit, weights)
}

// SearchByTag returns every unit carrying the exact tag.
func (c *Client) SearchByTag(ctx context.Context, tag string) ([]*types.AtomicUnit, error) {
	return c.hybrid.SearchByTag(ctx, tag)
}

// FindRelatedUnits runs the two-stage relationship detection for one unit.
// Zero candidateLimit and similarityFloor fall back to the configured
// defaults.
func (c *Client) FindRelatedUnits(ctx context.Context, unit *types.AtomicUnit, candidateLimit int, similarityFloor float64) ([]types.Relationship, error) {
	if candidateLimit <= 0 {
		candidateLimit = c.cfg.Detector.CandidateLimit
	}
	if similarityFloor <= 0 {
		similarityFloor = c.cfg.Detector.SimilarityFloor
	}
	return c.detector.FindRelatedUnits(ctx, unit, candidateLimit, similarityFloor)
}

// BuildRelationshipGraph detects relationships for every unit concurrently
// and links the results into the knowledge graph. Per-unit failures land in
// the report; they never abort the batch.
func (c *Client) BuildRelationshipGraph(ctx context.Context, units []*types.AtomicUnit) (map[string][]types.Relationship, *detector.BuildReport, error) {
	byUnit, report, err := c.detector.BuildRelationshipGraph(ctx, units, &detector.BatchOptions{
		CandidateLimit:  c.cfg.Detector.CandidateLimit,
		SimilarityFloor: c.cfg.Detector.SimilarityFloor,
		Concurrency:     c.cfg.Detector.Concurrency,
	})
	if err != nil {
		return nil, nil, err
	}

	var all []types.Relationship
	for _, rels := range byUnit {
		all = append(all, rels...)
	}
	if err := c.LinkRelationships(ctx, all); err != nil {
		return nil, nil, err
	}
	return byUnit, report, nil
}

// LinkRelationships inserts the given relationships as graph edges and
// mirrors them when a graph store is configured.
func (c *Client) LinkRelationships(ctx context.Context, rels []types.Relationship) error {
	edges := make([]*graph.Edge, 0, len(rels))
	for _, rel := range rels {
		edge := &graph.Edge{
			ID:       rel.ID,
			Source:   rel.FromUnit,
			Target:   rel.ToUnit,
			Type:     rel.Type,
			Strength: rel.Strength,
		}
		c.graph.AddEdge(edge)
		edges = append(edges, edge)
	}

	if c.mirror != nil && len(edges) > 0 {
		if err := c.mirror.UpsertEdges(ctx, edges); err != nil {
			return fmt.Errorf("mirroring edges: %w", err)
		}
	}
	return nil
}

// Graph exposes the underlying knowledge graph for direct traversal.
func (c *Client) Graph() *graph.KnowledgeGraph {
	return c.graph
}

// FindShortestPath returns the node ids along a shortest directed path.
func (c *Client) FindShortestPath(from, to string) []string {
	return c.graph.FindShortestPath(from, to)
}

// GetNeighborhood expands up to hops levels around center.
func (c *Client) GetNeighborhood(center string, hops int) *graph.Neighborhood {
	return c.graph.GetNeighborhood(center, hops)
}

// GraphStatistics returns aggregate graph measures.
func (c *Client) GraphStatistics() graph.Statistics {
	return c.graph.GetStatistics()
}

// GraphVisFormat returns the graph projected for the vis-network renderer.
func (c *Client) GraphVisFormat() *graph.VisFormat {
	return c.graph.ToVisFormat()
}

// CacheStats snapshots the embedding-cache counters.
func (c *Client) CacheStats() embcache.Stats {
	return c.cache.Stats()
}

// PruneCache drops cache entries older than maxAge and returns how many were
// removed.
func (c *Client) PruneCache(maxAge time.Duration) int {
	return c.cache.PruneOldEntries(maxAge)
}

// SaveCache persists the embedding cache to its store.
func (c *Client) SaveCache() error {
	return c.cache.Save()
}

// Close persists the cache and tears down every provider. Errors are
// collected, not short-circuited, so one failing component does not leak the
// others.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if err := c.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing cache: %w", err))
	}
	if err := c.embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing embedder: %w", err))
	}
	if err := c.oracle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing oracle: %w", err))
	}
	if c.mirror != nil {
		if err := c.mirror.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing graph store: %w", err))
		}
	}
	return errors.Join(errs...)
}
