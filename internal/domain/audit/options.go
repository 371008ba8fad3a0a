package audit

import "time"

// Option configures a Log.
type Option func(*Log)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}
