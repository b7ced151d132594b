// Package ingest implements the dedup-aware ingestion engine: hashing,
// source resolution and feeding the vector index.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/bull/stash/internal/store"
	"github.com/bull/stash/internal/vecindex"
)

// SourceTypeManualText is the default source type for raw text ingestion.
const SourceTypeManualText = "manual_text"

// SourceTypeWebpage is the source type assigned by webpage ingestion.
const SourceTypeWebpage = "webpage"

// Service orchestrates ingestion against the content store and the vector
// index.
type Service struct {
	store  *store.Store
	index  *vecindex.Index
	logger *slog.Logger
}

// NewService creates an ingestion service. A nil logger falls back to
// slog.Default().
func NewService(st *store.Store, index *vecindex.Index, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		index:  index,
		logger: logger,
	}
}

// ContentHash returns the dedup key for a text: the lowercase hex SHA-256
// digest of its UTF-8 bytes.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IngestText ingests a unit of raw text. sourceTitle and sourceURL may be
// empty. The returned bool is false when the text deduplicated against an
// existing item.
//
// On a hash match the existing item is returned immediately with its original
// Source: new provenance supplied by the caller is discarded, and an existing
// Source's title is never corrected on this path. Only webpage ingestion
// reconciles titles.
func (s *Service) IngestText(ctx context.Context, text, sourceType, sourceTitle, sourceURL string) (*store.ContentItem, bool, error) {
	if strings.TrimSpace(text) == "" {
		return nil, false, ErrEmptyText
	}
	if sourceType == "" {
		sourceType = SourceTypeManualText
	}

	hash := ContentHash(text)
	if existing, ok, err := s.findExisting(ctx, hash); err != nil {
		return nil, false, err
	} else if ok {
		return existing, false, nil
	}

	var src *store.Source
	if sourceURL != "" {
		found, err := s.store.FindSourceByURL(ctx, sourceURL)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
		src = found
	}
	if src == nil {
		created, err := s.store.CreateSource(ctx, sourceType, optional(sourceURL), optional(sourceTitle), nil)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("created source", "source_id", created.ID, "type", created.Type)
		src = created
	}

	return s.createAndIndex(ctx, text, hash, src)
}

// IngestWebpage ingests the extracted text of a webpage. Unlike IngestText it
// reconciles the stored title of an existing Source for the URL when the
// supplied title is non-empty and differs. The dedup short-circuit still wins:
// a hash match returns the original item and Source untouched.
func (s *Service) IngestWebpage(ctx context.Context, text, sourceURL, sourceTitle string) (*store.ContentItem, bool, error) {
	if strings.TrimSpace(text) == "" {
		return nil, false, ErrEmptyText
	}
	if sourceURL == "" {
		return nil, false, ErrMissingURL
	}

	hash := ContentHash(text)
	if existing, ok, err := s.findExisting(ctx, hash); err != nil {
		return nil, false, err
	} else if ok {
		return existing, false, nil
	}

	src, err := s.store.UpsertSource(ctx, SourceTypeWebpage, optional(sourceURL), optional(sourceTitle))
	if err != nil {
		return nil, false, err
	}

	return s.createAndIndex(ctx, text, hash, src)
}

// findExisting implements the dedup short-circuit.
func (s *Service) findExisting(ctx context.Context, hash string) (*store.ContentItem, bool, error) {
	item, err := s.store.FindContentItemByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("content already exists, returning existing item", "content_item_id", item.ID, "hash", hash)
	return item, true, nil
}

// createAndIndex creates the ContentItem and feeds the vector index.
// Index failures are logged and swallowed: the item is stored and ingestion
// succeeds, it just isn't searchable until a future re-index pass.
func (s *Service) createAndIndex(ctx context.Context, text, hash string, src *store.Source) (*store.ContentItem, bool, error) {
	item, err := s.store.CreateContentItem(ctx, text, hash, src.ID)
	if err != nil {
		// A concurrent ingestion of the same text can win the insert race;
		// resolve it the same way as the ordinary dedup path.
		if errors.Is(err, store.ErrConstraintViolation) {
			if existing, ok, ferr := s.findExisting(ctx, hash); ferr == nil && ok {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	item.Source = src
	s.logger.Info("created content item", "content_item_id", item.ID, "source_id", src.ID)

	if _, err := s.index.AddEmbedding(ctx, item.ID, text); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, vecindex.ErrPersistence) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "failed to index content item, continuing unembedded",
			"content_item_id", item.ID, "error", err)
	}

	return item, true, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
