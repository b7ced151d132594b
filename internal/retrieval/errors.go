package retrieval

import "errors"

var (
	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrEmptyContent is returned when an item has no text to summarize.
	ErrEmptyContent = errors.New("content item has no text to summarize")

	// ErrSummarization wraps failures from the external summarizer. The
	// underlying message is carried through for debuggability.
	ErrSummarization = errors.New("summarization failed")
)
