package service

import (
	"errors"
	"fmt"

	"github.com/okian/trustgate/internal/domain/model"
)

// Sentinel errors. Request-level validation failures wrap model.ErrValidation.
var (
	ErrEmptyBatch    = fmt.Errorf("%w: batch is empty", model.ErrValidation)
	ErrBatchTooLarge = fmt.Errorf("%w: batch too large", model.ErrValidation)
	ErrUnavailable   = errors.New("service unavailable")
	ErrNotStarted    = errors.New("service not started")
)
