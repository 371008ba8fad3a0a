// Package service wires the triage pipeline, the trust score engine and the
// curator workflow behind the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/trustgate/internal/adapters/mq/queue"
	"github.com/okian/trustgate/internal/adapters/mq/worker"
	"github.com/okian/trustgate/internal/adapters/repository"
	"github.com/okian/trustgate/internal/domain/audit"
	"github.com/okian/trustgate/internal/domain/dedupe"
	"github.com/okian/trustgate/internal/domain/feedback"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/rules"
	"github.com/okian/trustgate/internal/domain/scoring"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"
)

// Evaluator judges one candidate item. It must not fail: problems are
// expressed as a fallback result.
type Evaluator interface {
	Evaluate(ctx context.Context, item model.CandidateItem) model.ModerationResult
}

// Deps are the collaborators the Service cannot build itself.
type Deps struct {
	Store      repository.Store
	Cache      dedupe.Cache
	Evaluator  Evaluator
	Rules      *rules.Engine       // optional
	Reputation *scoring.Reputation // optional
}

// Service implements the API dependencies for the triage system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	dedupe     *dedupe.Deduplicator
	evaluator  Evaluator
	rules      *rules.Engine
	reputation *scoring.Reputation
	engine     *scoring.Engine
	audit      *audit.Log
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	trigger    *feedback.Trigger

	concurrency   int
	maxBatchSize  int
	workerCount   int
	queueSize     int
	sweepInterval time.Duration
	raterKey      [32]byte
	scoringOpts   []scoring.Option
	now           func() time.Time

	started   bool
	cancel    context.CancelFunc
	sweepDone chan struct{}

	logger logger.Logger
}

// New constructs a Service. Background work starts with Start.
func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("service: store is required")
	case deps.Cache == nil:
		return nil, errors.New("service: dedupe cache is required")
	case deps.Evaluator == nil:
		return nil, errors.New("service: evaluator is required")
	}

	s := &Service{
		store:         deps.Store,
		evaluator:     deps.Evaluator,
		rules:         deps.Rules,
		reputation:    deps.Reputation,
		concurrency:   8,
		maxBatchSize:  500,
		workerCount:   runtime.NumCPU(),
		queueSize:     10000,
		sweepInterval: time.Hour,
		raterKey:      raterKey(""),
		now:           time.Now,
		logger:        logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reputation == nil {
		s.reputation = scoring.NewReputation(nil, nil, 0.5)
	}

	s.dedupe = dedupe.New(deps.Cache)
	s.audit = audit.New(audit.WithClock(s.now))
	s.engine = scoring.NewEngine(s.store, s.audit, append([]scoring.Option{scoring.WithClock(s.now)}, s.scoringOpts...)...)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.trigger = feedback.New(s.engine, s.queue)
	return s, nil
}

// Engine returns the trust score engine.
func (s *Service) Engine() *scoring.Engine {
	return s.engine
}

// Start launches the recalculation workers and the recency sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine)
	s.pool.Start(ctx)

	s.sweepDone = make(chan struct{})
	if s.sweepInterval > 0 {
		go s.runSweeper(ctx, s.sweepInterval)
	} else {
		close(s.sweepDone)
	}

	s.started = true
	s.logger.Info(ctx, "triage service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("concurrency", s.concurrency),
		logger.Duration("sweepInterval", s.sweepInterval),
	)
	return nil
}

// Stop stops the sweeper, lets the workers drain the queue until ctx expires,
// and stops them. The store is left open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping triage service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	<-s.sweepDone

	s.started = false
	s.logger.Info(ctx, "triage service stopped")
	return errors.Join(errs...)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.store.CountEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	pending, err := s.store.CountReviews(ctx, model.ReviewPending)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	dedupeSize := s.dedupe.Size()
	queueLen := s.queue.Len(ctx)
	metrics.UpdateTotalEntries(int(entries))
	metrics.UpdateDedupeCacheSize(int(dedupeSize))

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"queueLength":    queueLen,
		"dedupeSize":     dedupeSize,
		"totalEntries":   entries,
		"pendingReviews": pending,
		"concurrency":    s.concurrency,
		"maxBatchSize":   s.maxBatchSize,
	}
	if s.pool != nil {
		stats["processedJobs"] = s.pool.Processed()
	}
	return stats, nil
}
