package model

import "errors"

// ErrValidation marks input that fails domain validation.
var ErrValidation = errors.New("validation failed")
