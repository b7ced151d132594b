package store

import "time"

// Source is a provenance record: where a piece of ingested content came from.
// A Source owns zero or more ContentItems.
type Source struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Type         string    `gorm:"not null;index" json:"type"`
	URL          *string   `gorm:"uniqueIndex" json:"url,omitempty"`
	Title        *string   `json:"title,omitempty"`
	OriginalPath *string   `json:"original_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	ContentItems []ContentItem `gorm:"foreignKey:SourceID" json:"-"`
}

// ContentItem is one deduplicated unit of ingested text. ContentHash is the
// dedup key: at most one row may exist for a given hash.
type ContentItem struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	TextContent string     `gorm:"not null" json:"text_content"`
	ContentHash string     `gorm:"uniqueIndex;size:64;not null" json:"content_hash"`
	Metadata    *string    `json:"metadata,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	SourceID    string     `gorm:"size:36;not null;index" json:"source_id"`

	Source  *Source  `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	Summary *Summary `gorm:"foreignKey:ContentItemID" json:"summary,omitempty"`
}

// Summary is a cached derived summary for a ContentItem. The unique index on
// ContentItemID enforces the one-to-one relationship at the storage layer,
// which is what settles concurrent summarize races.
type Summary struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	SummaryText   string    `gorm:"not null" json:"summary_text"`
	ModelUsed     *string   `json:"model_used,omitempty"`
	Type          string    `gorm:"default:manual;index" json:"type"`
	CreatedAt     time.Time `json:"created_at"`
	ContentItemID string    `gorm:"uniqueIndex;size:36;not null" json:"content_item_id"`
}
