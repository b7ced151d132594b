package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	IndexSize int    `json:"index_size"`
	Timestamp string `json:"timestamp"`
}

// handleHealth checks database connectivity and reports the current index
// size. A failing database ping yields 503.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		IndexSize: s.index.Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	resp.Status = "healthy"
	resp.Database = "connected"
	c.JSON(http.StatusOK, resp)
}
