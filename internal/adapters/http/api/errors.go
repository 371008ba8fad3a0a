package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

func wrapBadRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}
