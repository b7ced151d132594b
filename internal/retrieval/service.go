// Package retrieval implements the search merge layer: similarity queries
// reconciled against the content store, plus the summary cache.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/stash/internal/store"
	"github.com/bull/stash/internal/summarize"
	"github.com/bull/stash/internal/vecindex"
)

// DefaultK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultK = 5

// SummaryType is the type tag recorded on generated summaries.
const SummaryType = "ai_generated_item_summary"

// Result is one search hit: a hydrated content item with its similarity
// distance (squared Euclidean, smaller is more similar).
type Result struct {
	Item     store.ContentItem
	Distance float32
}

// Service reconciles vector-ranked results with relational records and owns
// the summarization cache logic.
type Service struct {
	store      *store.Store
	index      *vecindex.Index
	summarizer summarize.Summarizer
	logger     *slog.Logger
}

// NewService creates a retrieval service. A nil logger falls back to
// slog.Default().
func NewService(st *store.Store, index *vecindex.Index, summarizer summarize.Summarizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		index:      index,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Search ranks stored content by similarity to query and hydrates the ranked
// ids from the content store, preserving the index's order. Ranked ids with
// no store record are dropped with a warning: the index and the store are
// eventually consistent, not transactional.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultK
	}

	hits, err := s.index.SearchSimilar(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ContentItemID
	}

	items, err := s.store.FindContentItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	// The batch fetch has no inherent order; re-walk the ranked hits.
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		item, ok := byID[hit.ContentItemID]
		if !ok {
			s.logger.Warn("ranked content item missing from store, dropping",
				"content_item_id", hit.ContentItemID)
			continue
		}
		results = append(results, Result{Item: item, Distance: hit.Distance})
	}
	return results, nil
}

// Summarize returns the cached summary for an item, generating and storing
// one on first request. The first generated summary wins permanently: later
// calls return it unchanged regardless of the length parameters.
func (s *Service) Summarize(ctx context.Context, itemID string, maxLen, minLen int) (*store.Summary, error) {
	item, err := s.store.GetContentItemWithRelations(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.Summary != nil {
		s.logger.Info("returning existing summary", "content_item_id", itemID, "summary_id", item.Summary.ID)
		return item.Summary, nil
	}

	if strings.TrimSpace(item.TextContent) == "" {
		return nil, ErrEmptyContent
	}

	if maxLen <= 0 {
		maxLen = 150
	}
	if minLen <= 0 {
		minLen = 30
	}

	text, err := s.summarizer.Summarize(ctx, item.TextContent, maxLen, minLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarization, err)
	}

	model := s.summarizer.Model()
	summary, err := s.store.CreateSummary(ctx, item.ID, text, &model, SummaryType)
	if err != nil {
		// A concurrent summarize for the same item can win the insert race;
		// the loser surfaces a generic summarization failure rather than
		// silently adopting the winning summary.
		if errors.Is(err, store.ErrConstraintViolation) {
			return nil, fmt.Errorf("%w: %v", ErrSummarization, err)
		}
		return nil, err
	}
	s.logger.Info("created summary", "content_item_id", itemID, "summary_id", summary.ID)
	return summary, nil
}
