package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/okian/trustgate/internal/domain/audit"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/storage"
	"github.com/okian/trustgate/pkg/metrics"
)

// Recalculation reasons.
const (
	ReasonRating       = "rating"
	ReasonSweep        = "sweep"
	ReasonVerification = "verification"
	ReasonManual       = "manual"
	ReasonCreated      = "created"
)

const scoreEpsilon = 1e-12

// Mutation is applied in the same transaction as the recalculation it triggers.
type Mutation func(ctx context.Context, tx storage.Tx) error

// Engine recalculates trust scores. At most one recalculation per entry runs
// at a time; different entries proceed in parallel.
type Engine struct {
	store    storage.Store
	audit    *audit.Log
	weights  Weights
	halfLife time.Duration
	floor    float64
	now      func() time.Time
	locks    *xsync.MapOf[string, *entryLock]
}

// entryLock is dropped from Engine.locks once no caller holds or waits on it.
// refs is only touched inside locks.Compute.
type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates an Engine over store, writing audit entries through log.
func NewEngine(store storage.Store, log *audit.Log, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		audit:    log,
		weights:  DefaultWeights(),
		halfLife: defaultHalfLife,
		floor:    defaultRecencyFloor,
		now:      time.Now,
		locks:    xsync.NewMapOf[string, *entryLock](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time in UTC.
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// Compute returns the scores of entry at now given its rating values. The
// source score is the one fixed at creation.
func (e *Engine) Compute(entry model.KnowledgeEntry, ratings []int, now time.Time) model.ScoreSet {
	verified := entry.LastVerifiedAt
	if verified.IsZero() {
		verified = entry.CreatedAt
	}
	s := model.ScoreSet{
		Source:       Clamp(entry.SourceScore),
		Recency:      RecencyScore(verified, now, e.halfLife, e.floor),
		Verification: VerificationScore(entry.VerificationState),
		Community:    CommunityScore(ratings),
	}
	s.Trust = Composite(s, e.weights)
	return s
}

// Create scores a new entry and inserts it with its first history row
// inside tx. The caller writes the audit entry for the decision that created it.
func (e *Engine) Create(ctx context.Context, tx storage.Tx, entry *model.KnowledgeEntry) error {
	now := e.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastVerifiedAt.IsZero() {
		entry.LastVerifiedAt = entry.CreatedAt
	}
	if entry.VerificationState == "" {
		entry.VerificationState = model.Unverified
	}
	s := e.Compute(*entry, nil, now)
	entry.SourceScore = s.Source
	entry.RecencyScore = s.Recency
	entry.VerificationScore = s.Verification
	entry.CommunityScore = nil
	entry.TrustScore = s.Trust
	entry.LastCalculatedAt = now

	if err := tx.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if err := tx.AppendHistory(ctx, &model.ScoreHistory{
		EntryID:      entry.ID,
		Scores:       s,
		Reason:       ReasonCreated,
		CalculatedAt: now,
	}); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	metrics.RecordRecalculation(ReasonCreated, s.Trust)
	return nil
}

// Recalculate recomputes the entry's scores from persisted state and returns
// the new trust score.
func (e *Engine) Recalculate(ctx context.Context, entryID, reason string) (float64, error) {
	return e.Update(ctx, entryID, reason, nil)
}

// Update applies mutate, then recalculates the entry, in one transaction
// under the entry's lock. The entry update, its history row and its audit
// entry commit together or not at all.
func (e *Engine) Update(ctx context.Context, entryID, reason string, mutate Mutation) (float64, error) {
	unlock := e.lock(entryID)
	defer unlock()

	start := time.Now()
	var after model.ScoreSet
	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		if mutate != nil {
			if err := mutate(ctx, tx); err != nil {
				return err
			}
		}
		entry, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		ratings, err := tx.RatingValues(ctx, entryID)
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}

		now := e.Now()
		before := entry.Scores()
		after = e.Compute(entry, ratings, now)

		if err := tx.UpdateScores(ctx, entryID, after, now); err != nil {
			return fmt.Errorf("update scores: %w", err)
		}
		if err := tx.AppendHistory(ctx, &model.ScoreHistory{
			EntryID:      entryID,
			Scores:       after,
			Reason:       reason,
			CalculatedAt: now,
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return e.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpRecalculate,
			EntryID:   entryID,
			Actor:     actorFor(reason),
			Details: recalcDetails{
				Reason:  reason,
				Before:  before,
				After:   after,
				Changed: Changed(before, after),
			},
		})
	})
	metrics.RecordRecalculationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRecalculationError()
		return 0, err
	}
	metrics.RecordRecalculation(reason, after.Trust)
	return after.Trust, nil
}

type recalcDetails struct {
	Reason  string         `json:"reason"`
	Before  model.ScoreSet `json:"before"`
	After   model.ScoreSet `json:"after"`
	Changed []string       `json:"changed"`
}

// Changed names the sub-scores that differ between two score sets.
func Changed(before, after model.ScoreSet) []string {
	changed := []string{}
	if !same(before.Source, after.Source) {
		changed = append(changed, "source")
	}
	if !same(before.Recency, after.Recency) {
		changed = append(changed, "recency")
	}
	if !same(before.Verification, after.Verification) {
		changed = append(changed, "verification")
	}
	switch {
	case before.Community == nil && after.Community == nil:
	case before.Community == nil || after.Community == nil || !same(*before.Community, *after.Community):
		changed = append(changed, "community")
	}
	return changed
}

func same(a, b float64) bool {
	return math.Abs(a-b) < scoreEpsilon
}

func actorFor(reason string) model.ActorType {
	switch reason {
	case ReasonRating:
		return model.ActorCommunity
	case ReasonVerification:
		return model.ActorCurator
	default:
		return model.ActorSystem
	}
}

func (e *Engine) lock(entryID string) func() {
	l, _ := e.locks.Compute(entryID, func(l *entryLock, loaded bool) (*entryLock, bool) {
		if !loaded {
			l = &entryLock{}
		}
		l.refs++
		return l, false
	})
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locks.Compute(entryID, func(l *entryLock, loaded bool) (*entryLock, bool) {
			if !loaded {
				return l, true
			}
			l.refs--
			return l, l.refs == 0
		})
	}
}
