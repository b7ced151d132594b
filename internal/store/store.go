// Package store implements the relational content store: Source, ContentItem
// and Summary records backed by sqlite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the gorm handle and exposes the minimal contract consumed by
// the ingestion engine and the retrieval layer.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates the
// schema. Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Source{}, &ContentItem{}, &Summary{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindSourceByURL looks up a Source by its unique URL.
// Returns ErrNotFound if no Source has that URL.
func (s *Store) FindSourceByURL(ctx context.Context, url string) (*Source, error) {
	var src Source
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&src).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find source by url: %w", err)
	}
	return &src, nil
}

// CreateSource inserts a new Source. url, title and originalPath may be nil.
func (s *Store) CreateSource(ctx context.Context, sourceType string, url, title, originalPath *string) (*Source, error) {
	src := &Source{
		ID:           uuid.New().String(),
		Type:         sourceType,
		URL:          url,
		Title:        title,
		OriginalPath: originalPath,
	}
	if err := s.db.WithContext(ctx).Create(src).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: source url already exists", ErrConstraintViolation)
		}
		return nil, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// UpsertSource returns the Source for url if one exists, updating its title
// in place when the supplied title is non-empty and differs from the stored
// one. Without a url (or when no Source matches) a new Source is created.
func (s *Store) UpsertSource(ctx context.Context, sourceType string, url, title *string) (*Source, error) {
	if url == nil || *url == "" {
		return s.CreateSource(ctx, sourceType, nil, title, nil)
	}

	src, err := s.FindSourceByURL(ctx, *url)
	if errors.Is(err, ErrNotFound) {
		return s.CreateSource(ctx, sourceType, url, title, nil)
	}
	if err != nil {
		return nil, err
	}

	if title != nil && *title != "" && (src.Title == nil || *src.Title != *title) {
		src.Title = title
		if err := s.db.WithContext(ctx).Model(src).Update("title", *title).Error; err != nil {
			return nil, fmt.Errorf("update source title: %w", err)
		}
	}
	return src, nil
}

// FindContentItemByHash looks up a ContentItem by its content hash, with its
// Source attached. Returns ErrNotFound when the hash is unknown.
func (s *Store) FindContentItemByHash(ctx context.Context, hash string) (*ContentItem, error) {
	var item ContentItem
	err := s.db.WithContext(ctx).Preload("Source").Where("content_hash = ?", hash).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find content item by hash: %w", err)
	}
	return &item, nil
}

// CreateContentItem inserts a new ContentItem under the given Source.
// Returns ErrConstraintViolation when the hash already exists.
func (s *Store) CreateContentItem(ctx context.Context, text, hash, sourceID string) (*ContentItem, error) {
	item := &ContentItem{
		ID:          uuid.New().String(),
		TextContent: text,
		ContentHash: hash,
		SourceID:    sourceID,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: content hash already exists", ErrConstraintViolation)
		}
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return item, nil
}

// CreateSummary inserts the summary for a ContentItem. The unique index on
// content_item_id makes a second insert fail with ErrConstraintViolation.
func (s *Store) CreateSummary(ctx context.Context, contentItemID, text string, modelUsed *string, summaryType string) (*Summary, error) {
	sum := &Summary{
		ID:            uuid.New().String(),
		SummaryText:   text,
		ModelUsed:     modelUsed,
		Type:          summaryType,
		ContentItemID: contentItemID,
	}
	if err := s.db.WithContext(ctx).Create(sum).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: summary already exists for content item %s", ErrConstraintViolation, contentItemID)
		}
		return nil, fmt.Errorf("create summary: %w", err)
	}
	return sum, nil
}

// GetContentItemWithRelations fetches a ContentItem by id with its Source and
// Summary hydrated. Returns ErrNotFound for an unknown id.
func (s *Store) GetContentItemWithRelations(ctx context.Context, id string) (*ContentItem, error) {
	var item ContentItem
	err := s.db.WithContext(ctx).Preload("Source").Preload("Summary").Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get content item: %w", err)
	}
	return &item, nil
}

// FindContentItemsByIDs fetches the ContentItems for the given ids with
// Sources and Summaries attached. Unknown ids are simply absent from the
// result; the returned order is unspecified.
func (s *Store) FindContentItemsByIDs(ctx context.Context, ids []string) ([]ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []ContentItem
	err := s.db.WithContext(ctx).Preload("Source").Preload("Summary").Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("find content items by ids: %w", err)
	}
	return items, nil
}

// ListContentItems returns content items in insertion order with Sources and
// Summaries attached.
func (s *Store) ListContentItems(ctx context.Context, offset, limit int) ([]ContentItem, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var items []ContentItem
	err := s.db.WithContext(ctx).
		Preload("Source").
		Preload("Summary").
		Order("rowid").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	return items, nil
}

// isUniqueViolation reports whether err is a uniqueness-constraint failure.
// gorm translates these to ErrDuplicatedKey when the driver supports it; the
// sqlite message check covers drivers that don't.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
