package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trustgate/internal/adapters/mq/queue"
	"github.com/okian/trustgate/internal/domain/scoring"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"
)

// Sweep queues a recency recalculation for every live entry. It returns how
// many jobs were accepted; jobs rejected by a full queue wait for the next sweep.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.ListEntryIDs(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	metrics.UpdateTotalEntries(len(ids))

	queued := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if s.queue.Enqueue(ctx, queue.Job{EntryID: id, Reason: scoring.ReasonSweep}) {
			queued++
		}
	}
	if queued < len(ids) {
		s.logger.Warn(ctx, "sweep could not queue every entry",
			logger.Int("entries", len(ids)),
			logger.Int("queued", queued),
		)
	}
	return queued, nil
}

func (s *Service) runSweeper(ctx context.Context, every time.Duration) {
	defer close(s.sweepDone)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				metrics.RecordErrorByComponent("sweeper", "list_entries")
				s.logger.Error(ctx, "sweep failed", logger.Error(err))
				continue
			}
			s.logger.Debug(ctx, "sweep queued recalculations", logger.Int("queued", n))
		}
	}
}
