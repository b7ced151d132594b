package watcher

import "errors"

var (
	// ErrUnsupportedFile is returned for file extensions the watcher does
	// not know how to extract text from.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrEmptyFile is returned when a file yields no extractable text.
	ErrEmptyFile = errors.New("file has no extractable text")

	// ErrIngest is returned when the ingestion API rejects a document.
	ErrIngest = errors.New("ingest request failed")
)
