// Package feedback turns community rating events into trust score
// recalculations.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/scoring"
	"github.com/okian/trustgate/pkg/logger"
)

// ErrInvalidEvent is returned for events without an entry id or kind.
var ErrInvalidEvent = errors.New("invalid rating event")

// Updater is the part of the scoring engine the trigger drives.
type Updater interface {
	Update(ctx context.Context, entryID, reason string, mutate scoring.Mutation) (float64, error)
}

// Enqueuer accepts asynchronous recalculation jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, j model.RecalcJob) bool
}

// Trigger performs exactly one recalculation per rating event. Delivery may
// be repeated: the result only depends on persisted state.
type Trigger struct {
	engine Updater
	queue  Enqueuer
	logger logger.Logger
}

// New creates a Trigger. q may be nil, in which case Schedule recalculates
// synchronously.
func New(engine Updater, q Enqueuer) *Trigger {
	return &Trigger{engine: engine, queue: q, logger: logger.Get().Named("feedback")}
}

// Handle recalculates the event's entry and returns its new trust score.
func (t *Trigger) Handle(ctx context.Context, ev model.RatingEvent) (float64, error) {
	return t.Apply(ctx, ev, nil)
}

// Apply runs write and the recalculation it triggers as one unit, so the
// rating change commits only together with its score update and audit entry.
func (t *Trigger) Apply(ctx context.Context, ev model.RatingEvent, write scoring.Mutation) (float64, error) {
	if err := validate(ev); err != nil {
		return 0, err
	}
	score, err := t.engine.Update(ctx, ev.EntryID, scoring.ReasonRating, write)
	if err != nil {
		return 0, fmt.Errorf("rating %s on %s: %w", ev.Kind, ev.EntryID, err)
	}
	return score, nil
}

// Schedule queues the recalculation for a worker. It reports whether the job
// was accepted; a rejected job is recalculated inline instead.
func (t *Trigger) Schedule(ctx context.Context, ev model.RatingEvent) bool {
	if validate(ev) != nil {
		return false
	}
	if t.queue != nil && t.queue.Enqueue(ctx, model.RecalcJob{EntryID: ev.EntryID, Reason: scoring.ReasonRating, EnqueuedAt: ev.At}) {
		return true
	}
	t.logger.Warn(ctx, "recalculation queue unavailable, recalculating inline", logger.String("entry_id", ev.EntryID))
	if _, err := t.Handle(ctx, ev); err != nil {
		t.logger.Error(ctx, "inline recalculation failed", logger.String("entry_id", ev.EntryID), logger.Error(err))
		return false
	}
	return true
}

func validate(ev model.RatingEvent) error {
	if ev.EntryID == "" {
		return fmt.Errorf("%w: entry id is required", ErrInvalidEvent)
	}
	switch ev.Kind {
	case model.RatingCreated, model.RatingUpdated, model.RatingDeleted:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
}
