package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation is returned when an insert breaks a uniqueness
	// constraint (duplicate content hash, second summary for an item).
	ErrConstraintViolation = errors.New("constraint violation")
)
