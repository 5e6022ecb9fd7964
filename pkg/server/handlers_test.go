package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	noesis "github.com/noesis-kb/noesis"
	"github.com/noesis-kb/noesis/pkg/detector"
	"github.com/noesis-kb/noesis/pkg/embcache"
	"github.com/noesis-kb/noesis/pkg/graph"
	"github.com/noesis-kb/noesis/pkg/search"
	"github.com/noesis-kb/noesis/pkg/types"
)

// fakeCore implements noesis.Noesis with canned responses.
type fakeCore struct {
	units       map[string]*types.AtomicUnit
	searchHits  []types.HybridResult
	related     []types.Relationship
	lastLimit   int
	lastWeights search.Weights
}

func newFakeCore() *fakeCore {
	return &fakeCore{units: make(map[string]*types.AtomicUnit)}
}

func (f *fakeCore) AddUnits(_ context.Context, units ...*types.AtomicUnit) error {
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		f.units[u.ID] = u
	}
	return nil
}

func (f *fakeCore) GetUnit(id string) (*types.AtomicUnit, error) {
	u, ok := f.units[id]
	if !ok {
		return nil, noesis.ErrUnitNotFound
	}
	return u, nil
}

func (f *fakeCore) Search(_ context.Context, _ string, limit int, weights search.Weights) ([]types.HybridResult, error) {
	f.lastLimit = limit
	f.lastWeights = weights
	return f.searchHits, nil
}

func (f *fakeCore) SearchByTag(_ context.Context, tag string) ([]*types.AtomicUnit, error) {
	var out []*types.AtomicUnit
	for _, u := range f.units {
		for _, t := range u.Tags {
			if t == tag {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeCore) FindRelatedUnits(_ context.Context, _ *types.AtomicUnit, _ int, _ float64) ([]types.Relationship, error) {
	return f.related, nil
}

func (f *fakeCore) BuildRelationshipGraph(_ context.Context, units []*types.AtomicUnit) (map[string][]types.Relationship, *detector.BuildReport, error) {
	return map[string][]types.Relationship{}, &detector.BuildReport{Units: len(units)}, nil
}

func (f *fakeCore) LinkRelationships(_ context.Context, _ []types.Relationship) error { return nil }

func (f *fakeCore) FindShortestPath(from, to string) []string {
	if from == "a" && to == "c" {
		return []string{"a", "b", "c"}
	}
	return nil
}

func (f *fakeCore) GetNeighborhood(center string, _ int) *graph.Neighborhood {
	return &graph.Neighborhood{Nodes: []*graph.Node{{ID: center}}}
}

func (f *fakeCore) GraphStatistics() graph.Statistics {
	return graph.Statistics{NodeCount: 3, EdgeCount: 2}
}

func (f *fakeCore) GraphVisFormat() *graph.VisFormat {
	return &graph.VisFormat{Nodes: []graph.VisNode{{ID: "a", Label: "A"}}}
}

func (f *fakeCore) CacheStats() embcache.Stats {
	return embcache.Stats{Entries: 7, Hits: 5, Misses: 2}
}

func (f *fakeCore) PruneCache(_ time.Duration) int { return 4 }
func (f *fakeCore) SaveCache() error               { return nil }
func (f *fakeCore) Close(_ context.Context) error  { return nil }

var _ noesis.Noesis = (*fakeCore)(nil)

func newTestRouter(core noesis.Noesis) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := newHandler(core)

	router.GET("/health", h.Health)
	router.POST("/api/v1/units", h.AddUnits)
	router.GET("/api/v1/units/:id", h.GetUnit)
	router.GET("/api/v1/units/:id/related", h.FindRelated)
	router.POST("/api/v1/search", h.Search)
	router.GET("/api/v1/tags/:tag", h.SearchByTag)
	router.GET("/api/v1/graph", h.GraphVis)
	router.GET("/api/v1/graph/stats", h.GraphStats)
	router.GET("/api/v1/graph/path", h.ShortestPath)
	router.GET("/api/v1/cache/stats", h.CacheStats)
	router.POST("/api/v1/cache/prune", h.PruneCache)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := doRequest(newTestRouter(newFakeCore()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddUnitsEndpoint(t *testing.T) {
	core := newFakeCore()
	router := newTestRouter(core)

	w := doRequest(router, http.MethodPost, "/api/v1/units",
		`{"units": [{"id": "u1", "type": "insight", "title": "t", "content": "c"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, core.units, "u1")
}

func TestAddUnitsRejectsInvalidUnit(t *testing.T) {
	w := doRequest(newTestRouter(newFakeCore()), http.MethodPost, "/api/v1/units",
		`{"units": [{"id": "u1"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnitEndpoint(t *testing.T) {
	core := newFakeCore()
	core.units["u1"] = &types.AtomicUnit{ID: "u1", Content: "c"}
	router := newTestRouter(core)

	w := doRequest(router, http.MethodGet, "/api/v1/units/u1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/units/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	core := newFakeCore()
	core.searchHits = []types.HybridResult{{
		Unit:          &types.AtomicUnit{ID: "u1", Content: "c"},
		CombinedScore: 0.02,
	}}
	router := newTestRouter(core)

	w := doRequest(router, http.MethodPost, "/api/v1/search",
		`{"query": "channels", "limit": 3, "fts_weight": 0.7, "semantic_weight": 0.3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, core.lastLimit)
	assert.InDelta(t, 0.7, core.lastWeights.FTS, 1e-9)

	var body struct {
		Results []types.HybridResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "u1", body.Results[0].Unit.ID)
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	w := doRequest(newTestRouter(newFakeCore()), http.MethodPost, "/api/v1/search", `{"query": "  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindRelatedEndpoint(t *testing.T) {
	core := newFakeCore()
	core.units["u1"] = &types.AtomicUnit{ID: "u1", Content: "c"}
	core.related = []types.Relationship{{ID: "r1", FromUnit: "u1", ToUnit: "u2"}}
	router := newTestRouter(core)

	w := doRequest(router, http.MethodGet, "/api/v1/units/u1/related?limit=5&floor=0.8", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Relationships []types.Relationship `json:"relationships"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Relationships, 1)

	w = doRequest(router, http.MethodGet, "/api/v1/units/missing/related", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGraphEndpoints(t *testing.T) {
	router := newTestRouter(newFakeCore())

	w := doRequest(router, http.MethodGet, "/api/v1/graph", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"A"`)

	w = doRequest(router, http.MethodGet, "/api/v1/graph/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"node_count":3`)

	w = doRequest(router, http.MethodGet, "/api/v1/graph/path?from=a&to=c", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":true`)

	w = doRequest(router, http.MethodGet, "/api/v1/graph/path?from=a", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCacheEndpoints(t *testing.T) {
	router := newTestRouter(newFakeCore())

	w := doRequest(router, http.MethodGet, "/api/v1/cache/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":7`)

	w = doRequest(router, http.MethodPost, "/api/v1/cache/prune?max_age_hours=24", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pruned":4`)

	w = doRequest(router, http.MethodPost, "/api/v1/cache/prune", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
