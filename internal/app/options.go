package service

import (
	"time"

	"github.com/okian/trustgate/internal/domain/scoring"
	"github.com/okian/trustgate/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConcurrency bounds how many items of a batch are evaluated at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxBatchSize rejects batches larger than n items.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithWorkerCount sets the number of recalculation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recalculation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSweepInterval sets how often every live entry is queued for a recency
// recalculation. Zero disables the sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.sweepInterval = d
		}
	}
}

// WithRaterSalt sets the secret mixed into rater hashes.
func WithRaterSalt(salt string) Option {
	return func(s *Service) {
		s.raterKey = raterKey(salt)
	}
}

// WithScoringOptions passes options to the trust score engine.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// WithClock sets the time source for scoring, audit and ratings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
