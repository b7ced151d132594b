// Package api exposes the HTTP surface: ingestion, search, listing and
// summarization endpoints.
package api

import "github.com/bull/stash/internal/store"

// IngestTextRequest is the body for POST /ingest/text.
type IngestTextRequest struct {
	Text        string `json:"text" binding:"required"`
	SourceType  string `json:"source_type"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
}

// IngestWebpageRequest is the body for POST /ingest/webpage.
type IngestWebpageRequest struct {
	Text        string `json:"text" binding:"required"`
	SourceURL   string `json:"source_url" binding:"required"`
	SourceTitle string `json:"source_title"`
}

// SummarizeRequest is the optional body for POST /content_items/:id/summarize.
type SummarizeRequest struct {
	MaxLength int `json:"max_length"`
	MinLength int `json:"min_length"`
}

// SearchResult is one search response entry: the content item plus its
// similarity distance (smaller is more similar).
type SearchResult struct {
	store.ContentItem
	Distance float32 `json:"distance"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
