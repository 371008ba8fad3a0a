package storage

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRating = errors.New("duplicate rating")
	ErrConflict        = errors.New("state conflict")
)
