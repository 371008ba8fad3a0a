package repository

import (
	"errors"

	"github.com/okian/trustgate/internal/domain/storage"
)

// Sentinel kinds for persistence errors.
var (
	ErrNotFound        = storage.ErrNotFound
	ErrDuplicateRating = storage.ErrDuplicateRating
	ErrConflict        = storage.ErrConflict
	ErrUnsupportedURL  = errors.New("unsupported database url")
)
