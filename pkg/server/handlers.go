package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	noesis "github.com/noesis-kb/noesis"
	"github.com/noesis-kb/noesis/pkg/search"
	"github.com/noesis-kb/noesis/pkg/types"
)

type handler struct {
	core noesis.Noesis
}

func newHandler(core noesis.Noesis) *handler {
	return &handler{core: core}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortError(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: err.Error()})
}

// Health handles GET /health
func (h *handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addUnitsRequest struct {
	Units []*types.AtomicUnit `json:"units" binding:"required"`
}

// AddUnits handles POST /api/v1/units
func (h *handler) AddUnits(c *gin.Context) {
	var req addUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.core.AddUnits(c.Request.Context(), req.Units...); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrEmptyID) || errors.Is(err, types.ErrEmptyContent) {
			status = http.StatusBadRequest
		}
		abortError(c, status, "add_units_failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"added": len(req.Units)})
}

// GetUnit handles GET /api/v1/units/:id
func (h *handler) GetUnit(c *gin.Context) {
	unit, err := h.core.GetUnit(c.Param("id"))
	if err != nil {
		if errors.Is(err, noesis.ErrUnitNotFound) {
			abortError(c, http.StatusNotFound, "unit_not_found", err)
			return
		}
		abortError(c, http.StatusInternalServerError, "get_unit_failed", err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// FindRelated handles GET /api/v1/units/:id/related
func (h *handler) FindRelated(c *gin.Context) {
	unit, err := h.core.GetUnit(c.Param("id"))
	if err != nil {
		if errors.Is(err, noesis.ErrUnitNotFound) {
			abortError(c, http.StatusNotFound, "unit_not_found", err)
			return
		}
		abortError(c, http.StatusInternalServerError, "get_unit_failed", err)
		return
	}

	limit := queryInt(c, "limit", 0)
	floor := queryFloat(c, "floor", 0)

	rels, err := h.core.FindRelatedUnits(c.Request.Context(), unit, limit, floor)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "detection_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relationships": rels})
}

type searchRequest struct {
	Query          string  `json:"query"`
	Limit          int     `json:"limit"`
	FTSWeight      float64 `json:"fts_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
}

// Search handles POST /api/v1/search
func (h *handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		abortError(c, http.StatusBadRequest, "invalid_request", errors.New("query field is required and cannot be empty"))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := h.core.Search(c.Request.Context(), req.Query, req.Limit, search.Weights{
		FTS:      req.FTSWeight,
		Semantic: req.SemanticWeight,
	})
	if err != nil {
		abortError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// SearchByTag handles GET /api/v1/tags/:tag
func (h *handler) SearchByTag(c *gin.Context) {
	units, err := h.core.SearchByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		abortError(c, http.StatusInternalServerError, "tag_search_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

// GraphVis handles GET /api/v1/graph
func (h *handler) GraphVis(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.GraphVisFormat())
}

// GraphStats handles GET /api/v1/graph/stats
func (h *handler) GraphStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.GraphStatistics())
}

// ShortestPath handles GET /api/v1/graph/path?from=..&to=..
func (h *handler) ShortestPath(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		abortError(c, http.StatusBadRequest, "invalid_request", errors.New("from and to query parameters are required"))
		return
	}

	path := h.core.FindShortestPath(from, to)
	c.JSON(http.StatusOK, gin.H{"path": path, "found": len(path) > 0})
}

// Neighborhood handles GET /api/v1/graph/neighborhood/:id?hops=N
func (h *handler) Neighborhood(c *gin.Context) {
	hops := queryInt(c, "hops", 1)
	c.JSON(http.StatusOK, h.core.GetNeighborhood(c.Param("id"), hops))
}

// CacheStats handles GET /api/v1/cache/stats
func (h *handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.core.CacheStats())
}

// PruneCache handles POST /api/v1/cache/prune?max_age_hours=N
func (h *handler) PruneCache(c *gin.Context) {
	hours := queryInt(c, "max_age_hours", 0)
	if hours <= 0 {
		abortError(c, http.StatusBadRequest, "invalid_request", errors.New("max_age_hours query parameter must be positive"))
		return
	}

	pruned := h.core.PruneCache(time.Duration(hours) * time.Hour)
	c.JSON(http.StatusOK, gin.H{"pruned": pruned})
}

// SaveCache handles POST /api/v1/cache/save
func (h *handler) SaveCache(c *gin.Context) {
	if err := h.core.SaveCache(); err != nil {
		abortError(c, http.StatusInternalServerError, "cache_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(c *gin.Context, name string, fallback float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
