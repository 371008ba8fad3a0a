package rules

import "time"

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for occurrence_age_hours.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
