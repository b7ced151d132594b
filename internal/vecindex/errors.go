package vecindex

import "errors"

var (
	// ErrEmbedding wraps failures from the embedding model.
	ErrEmbedding = errors.New("embedding failed")

	// ErrPersistence wraps failures writing the index files to disk. An add
	// that returns this error has not been applied.
	ErrPersistence = errors.New("index persistence failed")

	// ErrCorruptIndex means the on-disk vector file and slot map disagree.
	// Fatal at startup; the index is never silently repaired.
	ErrCorruptIndex = errors.New("corrupt vector index")

	// ErrDimensionMismatch means a vector's length does not match the
	// index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
