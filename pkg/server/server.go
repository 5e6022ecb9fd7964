package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	noesis "github.com/noesis-kb/noesis"
	"github.com/noesis-kb/noesis/pkg/config"
	"github.com/noesis-kb/noesis/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	core   noesis.Noesis
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, core noesis.Noesis) *Server {
	return &Server{
		config: cfg,
		core:   core,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	h := newHandler(s.core)

	s.router.GET("/health", h.Health)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/units", h.AddUnits)
		v1.GET("/units/:id", h.GetUnit)
		v1.GET("/units/:id/related", h.FindRelated)

		v1.POST("/search", h.Search)
		v1.GET("/tags/:tag", h.SearchByTag)

		graph := v1.Group("/graph")
		{
			graph.GET("", h.GraphVis)
			graph.GET("/stats", h.GraphStats)
			graph.GET("/path", h.ShortestPath)
			graph.GET("/neighborhood/:id", h.Neighborhood)
		}

		cache := v1.Group("/cache")
		{
			cache.GET("/stats", h.CacheStats)
			cache.POST("/prune", h.PruneCache)
			cache.POST("/save", h.SaveCache)
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
