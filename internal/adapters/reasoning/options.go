package reasoning

import (
	"time"

	"github.com/okian/trustgate/pkg/logger"
)

const defaultTimeout = 15 * time.Second

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithTimeout bounds one evaluation, rate limiter wait included.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}
