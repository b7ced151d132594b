package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/bull/stash/internal/ingest"
	"github.com/bull/stash/internal/retrieval"
	"github.com/bull/stash/internal/store"
	"github.com/bull/stash/internal/vecindex"
)

// Server holds the handler dependencies.
type Server struct {
	ingest    *ingest.Service
	retrieval *retrieval.Service
	store     *store.Store
	index     *vecindex.Index
	logger    *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Ingest    *ingest.Service
	Retrieval *retrieval.Service
	Store     *store.Store
	Index     *vecindex.Index
	Logger    *slog.Logger
}

// NewServer creates the API server with the given dependencies.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ingest:    cfg.Ingest,
		retrieval: cfg.Retrieval,
		store:     cfg.Store,
		index:     cfg.Index,
		logger:    logger,
	}
}

// Routes registers all endpoints on the given engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.POST("/ingest/text", s.handleIngestText)
	r.POST("/ingest/webpage", s.handleIngestWebpage)
	r.GET("/search", s.handleSearch)
	r.GET("/content_items", s.handleListContentItems)
	r.GET("/content_items/:id", s.handleGetContentItem)
	r.POST("/content_items/:id/summarize", s.handleSummarize)
}
