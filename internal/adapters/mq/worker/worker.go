// Package worker drains the recalculation queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/trustgate/internal/adapters/mq/queue"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout     = 30 * time.Second
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Recalculator recomputes an entry's trust score.
type Recalculator interface {
	Recalculate(ctx context.Context, entryID, reason string) (float64, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes recalculation jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue      Queue
	recalc     Recalculator
	name       string
	jobTimeout time.Duration
	processed  *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, recalc Recalculator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		recalc:     recalc,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		processed:  new(atomic.Int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "recalculation job failed",
					logger.String("entry_id", job.EntryID),
					logger.String("reason", job.Reason),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	score, err := w.recalc.Recalculate(jobCtx, job.EntryID, job.Reason)
	w.processed.Add(1)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "recalculation_error")
		metrics.RecordErrorByType("recalculation_error", "high")
		return fmt.Errorf("recalculate %s: %w", job.EntryID, err)
	}

	w.logger.Debug(ctx, "entry recalculated",
		logger.String("entry_id", job.EntryID),
		logger.String("reason", job.Reason),
		logger.Float64("trust_score", score),
		logger.Duration("queued_for", start.Sub(job.EnqueuedAt)),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	processed         atomic.Int64
	lastProcessed     int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses
// runtime.NumCPU().
func NewPool(workerCount int, q Queue, recalc Recalculator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i)), withCounter(&p.processed)}, opts...)
		p.workers[i] = NewInMemoryWorker(q, recalc, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.startMetricsUpdater(ctx)
}

// Processed returns the number of jobs handled so far, failed ones included.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	total := p.processed.Load()
	if secs := now.Sub(p.lastProcessedTime).Seconds(); secs > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(total-p.lastProcessed) / secs)
	}
	p.lastProcessed = total
	p.lastProcessedTime = now
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// or the pool timeout expires first, the workers are stopped after their
// current job and the remaining jobs are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			if !timedOut {
				p.logger.Warn(ctx, "queue drain timed out, stopping workers", logger.Int("worker_id", i))
				timedOut = true
			}
			_ = w.Shutdown(context.Background())
		}
	}

	close(p.shutdown)
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
