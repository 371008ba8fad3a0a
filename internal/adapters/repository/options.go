package repository

import "time"

type openSettings struct {
	maxConns    int
	maxIdleTime time.Duration
	migrate     bool
}

// Option applies a configuration option to Open.
type Option func(*openSettings)

// WithMaxConnections caps open connections. SQLite always uses one.
func WithMaxConnections(n int) Option {
	return func(s *openSettings) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithConnMaxIdleTime sets how long an idle connection is kept.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(s *openSettings) {
		if d > 0 {
			s.maxIdleTime = d
		}
	}
}

// WithAutoMigrate controls schema migration on open. Enabled by default.
func WithAutoMigrate(enabled bool) Option {
	return func(s *openSettings) {
		s.migrate = enabled
	}
}
