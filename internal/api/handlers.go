package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bull/stash/internal/ingest"
	"github.com/bull/stash/internal/retrieval"
	"github.com/bull/stash/internal/store"
)

func (s *Server) handleIngestText(c *gin.Context) {
	var req IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is required"})
		return
	}

	item, _, err := s.ingest.IngestText(c.Request.Context(), req.Text, req.SourceType, req.SourceTitle, req.SourceURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	// Duplicate content is a designed short-circuit, not a failure: the
	// existing item is returned with the same status as a fresh one.
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleIngestWebpage(c *gin.Context) {
	var req IngestWebpageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text and source_url are required"})
		return
	}

	item, _, err := s.ingest.IngestWebpage(c.Request.Context(), req.Text, req.SourceURL, req.SourceTitle)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("query")
	k, _ := strconv.Atoi(c.DefaultQuery("k", "5"))

	results, err := s.retrieval.Search(c.Request.Context(), query, k)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{ContentItem: r.Item, Distance: r.Distance}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListContentItems(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	items, err := s.store.ListContentItems(c.Request.Context(), skip, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleGetContentItem(c *gin.Context) {
	item, err := s.store.GetContentItemWithRelations(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleSummarize(c *gin.Context) {
	req := SummarizeRequest{MaxLength: 150, MinLength: 30}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		if req.MaxLength <= 0 {
			req.MaxLength = 150
		}
		if req.MinLength <= 0 {
			req.MinLength = 30
		}
	}

	summary, err := s.retrieval.Summarize(c.Request.Context(), c.Param("id"), req.MaxLength, req.MinLength)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// writeError maps service errors onto HTTP statuses: invalid input and
// missing records are 4xx, backend and model failures are 5xx. Summarization
// failures carry the underlying message through for debuggability.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrEmptyText),
		errors.Is(err, ingest.ErrMissingURL),
		errors.Is(err, retrieval.ErrEmptyQuery),
		errors.Is(err, retrieval.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "content item not found"})
	case errors.Is(err, retrieval.ErrSummarization):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
