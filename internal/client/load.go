package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trustgate/pkg/logger"
)

// LoadConfig drives a synthetic ingestion run.
type LoadConfig struct {
	Items     int           // items to generate
	BatchSize int           // items per request
	Workers   int           // concurrent requests
	DupRate   float64       // share of cosmetic duplicates
	Progress  time.Duration // progress log interval; zero disables
}

// LoadStats aggregates the per-batch reports of a run.
type LoadStats struct {
	Batches       int
	FailedBatches int
	Items         IngestStats
	Duration      time.Duration
}

// ItemsPerSecond is the submission throughput of the run.
func (s LoadStats) ItemsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Items.Total) / s.Duration.Seconds()
}

// RunLoad generates items and submits them in batches from a worker pool.
// A batch that still fails after its retries is counted and the run continues.
func RunLoad(ctx context.Context, c *Client, cfg LoadConfig) (LoadStats, error) {
	if cfg.Items <= 0 || cfg.BatchSize <= 0 {
		return LoadStats{}, fmt.Errorf("%w: items and batch size must be positive", ErrRequest)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	log := logger.Named("load")
	start := time.Now()
	items := GenerateItems(cfg.Items, cfg.DupRate, start.UTC())

	var (
		mu      sync.Mutex
		stats   LoadStats
		batches atomic.Int64
		wg      sync.WaitGroup
	)
	work := make(chan []Item, cfg.Workers*2)

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range work {
				rep, err := c.Ingest(ctx, batch)
				batches.Add(1)

				mu.Lock()
				stats.Batches++
				if err != nil {
					stats.FailedBatches++
				} else {
					add(&stats.Items, rep.Stats)
				}
				mu.Unlock()

				if err != nil {
					log.Warn(ctx, "batch failed", logger.Int("size", len(batch)), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for i := 0; i < len(items); i += cfg.BatchSize {
			end := min(i+cfg.BatchSize, len(items))
			select {
			case <-ctx.Done():
				return
			case work <- items[i:end]:
			}
		}
	}()

	done := make(chan struct{})
	if cfg.Progress > 0 {
		go func() {
			t := time.NewTicker(cfg.Progress)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					log.Info(ctx, "progress", logger.Any("batches", batches.Load()))
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	stats.Duration = time.Since(start)

	log.Info(ctx, "load run finished",
		logger.Int("batches", stats.Batches),
		logger.Int("failedBatches", stats.FailedBatches),
		logger.Int("total", stats.Items.Total),
		logger.Int("autoApproved", stats.Items.AutoApproved),
		logger.Int("reviewQuick", stats.Items.ReviewQuick),
		logger.Int("reviewDeep", stats.Items.ReviewDeep),
		logger.Int("duplicates", stats.Items.Duplicates),
		logger.Int("failed", stats.Items.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("itemsPerSecond", stats.ItemsPerSecond()),
	)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func add(dst *IngestStats, s IngestStats) {
	dst.Total += s.Total
	dst.AutoApproved += s.AutoApproved
	dst.ReviewQuick += s.ReviewQuick
	dst.ReviewDeep += s.ReviewDeep
	dst.Duplicates += s.Duplicates
	dst.Failed += s.Failed
	dst.ProcessingTimeMs += s.ProcessingTimeMs
}
