package scoring

import "time"

const (
	defaultHalfLife     = 30 * 24 * time.Hour
	defaultRecencyFloor = 0.1
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the sub-score weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Source >= 0 && w.Recency >= 0 && w.Verification >= 0 && w.Community >= 0 {
			e.weights = w
		}
	}
}

// WithHalfLife sets the recency half-life.
func WithHalfLife(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.halfLife = d
		}
	}
}

// WithRecencyFloor sets the lowest recency score. Must be in (0,1].
func WithRecencyFloor(floor float64) Option {
	return func(e *Engine) {
		if floor > 0 && floor <= 1 {
			e.floor = floor
		}
	}
}

// WithClock sets the evaluation time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
