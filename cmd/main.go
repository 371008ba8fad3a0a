package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/trustgate/internal/adapters/fingerprints"
	"github.com/okian/trustgate/internal/adapters/http/api"
	"github.com/okian/trustgate/internal/adapters/http/swagger"
	"github.com/okian/trustgate/internal/adapters/reasoning"
	"github.com/okian/trustgate/internal/adapters/repository"
	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/config"
	"github.com/okian/trustgate/internal/domain/dedupe"
	"github.com/okian/trustgate/internal/domain/rules"
	"github.com/okian/trustgate/internal/domain/scoring"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// We collect our own system metrics on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "trustgate exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then drains the HTTP server and the service.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error(ctx, "closing resources failed", logger.Error(err))
		}
	}()

	if err := a.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, a.svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.svc.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("service stop: %w", err))
	}

	log.Info(ctx, "server stopped")
	return errors.Join(errs...)
}

// application holds the wired service and the resources it owns.
type application struct {
	svc     *service.Service
	handler http.Handler
	closers []io.Closer
}

// Close releases the dedupe cache and the store.
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// build opens the store, assembles the pipeline and registers the routes.
// The service is returned stopped.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	a := &application{}
	built := false
	defer func() {
		if !built {
			_ = a.Close()
		}
	}()

	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, store)

	safety, err := rules.New(cfg.SafetyRules)
	if err != nil {
		return nil, fmt.Errorf("compile safety rules: %w", err)
	}

	cache, err := newDedupeCache(ctx, cfg.Dedupe, log)
	if err != nil {
		return nil, err
	}
	if c, ok := cache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if cfg.Reasoning.APIKey == "" {
		log.Warn(ctx, "reasoning api key is empty; every item will fall back to deep review")
	}
	reasoner := reasoning.NewClient(
		cfg.Reasoning.Endpoint,
		cfg.Reasoning.APIKey,
		cfg.Reasoning.Model,
		cfg.Reasoning.MaxTokens,
		cfg.Reasoning.RateLimit,
		cfg.Reasoning.Burst,
	)
	evaluator := reasoning.NewAdapter(reasoner,
		reasoning.WithTimeout(cfg.Reasoning.Timeout),
		reasoning.WithLogger(log.Named("reasoning")),
	)

	t := cfg.Trust
	svc, err := service.New(service.Deps{
		Store:      store,
		Cache:      cache,
		Evaluator:  evaluator,
		Rules:      safety,
		Reputation: scoring.NewReputation(t.HostScores, t.SubmitterScores, t.DefaultSourceScore),
	},
		service.WithLogger(log.Named("service")),
		service.WithConcurrency(cfg.Concurrency),
		service.WithMaxBatchSize(cfg.MaxBatchSize),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSweepInterval(cfg.SweepInterval),
		service.WithRaterSalt(cfg.RaterSalt),
		service.WithScoringOptions(
			scoring.WithWeights(scoring.Weights{
				Source:       t.Weights.Source,
				Recency:      t.Weights.Recency,
				Verification: t.Weights.Verification,
				Community:    t.Weights.Community,
			}),
			scoring.WithHalfLife(t.HalfLife),
			scoring.WithRecencyFloor(t.RecencyFloor),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	a.svc = svc

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithIngestSecret(cfg.IngestSecret),
		api.WithCuratorSecret(cfg.CuratorSecret),
		api.WithRaterProxySecret(cfg.RaterProxySecret),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	a.handler = mux

	if cfg.IngestSecret == "" {
		log.Warn(ctx, "ingest_secret is empty; POST /ingest will reject every request")
	}
	built = true
	return a, nil
}

func newDedupeCache(ctx context.Context, cfg config.Dedupe, log logger.Logger) (dedupe.Cache, error) {
	if cfg.RedisURL == "" {
		return dedupe.NewMemoryCache(dedupe.WithMaxSize(cfg.Size), dedupe.WithWindow(cfg.Window)), nil
	}
	cache, err := fingerprints.NewRedisCache(ctx, cfg.RedisURL, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("connect dedupe redis: %w", err)
	}
	log.Info(ctx, "dedupe window shared through redis", logger.Duration("window", cfg.Window))
	return cache, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges from the service stats.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats, err := svc.Stats(ctx)
	if err != nil {
		logger.Get().Warn(ctx, "service stats unavailable", logger.Error(err))
		return
	}

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if total, ok := stats["totalEntries"].(int64); ok {
		metrics.UpdateTotalEntries(int(total))
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
