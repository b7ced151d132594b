package ingest

import "errors"

var (
	// ErrEmptyText is returned when the text to ingest is blank.
	ErrEmptyText = errors.New("text must not be empty")

	// ErrMissingURL is returned when a webpage ingestion has no source URL.
	ErrMissingURL = errors.New("source url is required")
)
