package reasoning

import "errors"

// Sentinel errors. All of them are recovered by the adapter's fallback.
var (
	ErrReasoning   = errors.New("reasoning service error")
	ErrStatus      = errors.New("reasoning service returned non-2xx status")
	ErrMalformed   = errors.New("malformed reasoning answer")
	ErrRateLimited = errors.New("reasoning rate limit wait exceeds deadline")
)
