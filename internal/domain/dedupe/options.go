package dedupe

import "time"

const (
	defaultMaxSize = 100_000
	defaultWindow  = 7 * 24 * time.Hour
)

// Option applies a configuration option to the in-memory cache.
type Option func(*memoryCache)

// WithMaxSize sets the maximum number of fingerprints kept. Values <= 0 are ignored.
func WithMaxSize(maxSize int) Option {
	return func(c *memoryCache) {
		if maxSize > 0 {
			c.maxSize = maxSize
		}
	}
}

// WithWindow sets how long a fingerprint stays in the window. Values <= 0 are ignored.
func WithWindow(window time.Duration) Option {
	return func(c *memoryCache) {
		if window > 0 {
			c.window = window
		}
	}
}
