package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Ingester sends extracted documents to the ingestion service.
type Ingester interface {
	IngestFile(ctx context.Context, doc *Document) error
}

// APIClient posts documents to the content API's text ingestion endpoint.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the ingestion API at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type ingestFileRequest struct {
	Text        string `json:"text"`
	SourceType  string `json:"source_type"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
}

// IngestFile posts a document using its absolute path as the source URL, so
// repeated ingests of the same file reuse one Source row. Transient failures
// (network errors, 5xx) are retried with exponential backoff; a duplicate
// already known to the service counts as success.
func (c *APIClient) IngestFile(ctx context.Context, doc *Document) error {
	body, err := json.Marshal(ingestFileRequest{
		Text:        doc.Text,
		SourceType:  doc.SourceType,
		SourceTitle: doc.Title,
		SourceURL:   doc.Path,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest/text", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusConflict:
			// The service already has this content.
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrIngest, resp.StatusCode)
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrIngest, resp.StatusCode, msg))
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 2 * time.Minute
	return backoff.Retry(operation, backoff.WithContext(expBackoff, ctx))
}
