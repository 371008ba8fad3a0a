package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/trustgate/internal/adapters/repository"
	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/config"
	"github.com/okian/trustgate/internal/domain/dedupe"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/rules"
	"github.com/okian/trustgate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func approve(conf float64) model.ModerationResult {
	return model.ModerationResult{
		Confidence:      conf,
		Relevance:       model.LevelHigh,
		Quality:         model.LevelHigh,
		LiberationScore: 0.8,
		Reasoning:       "useful",
		Recommendation:  model.RecommendAutoApprove,
		Flags:           []string{},
	}
}

// stubEvaluator answers by title and approves anything it does not know.
type stubEvaluator struct {
	mu      sync.Mutex
	answers map[string]model.ModerationResult
	block   bool
	calls   atomic.Int32
}

func (e *stubEvaluator) Evaluate(ctx context.Context, item model.CandidateItem) model.ModerationResult {
	e.calls.Add(1)
	if e.block {
		<-ctx.Done()
		return model.Fallback()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.answers[item.Title]; ok {
		return r
	}
	return approve(0.95)
}

type auditFailTx struct{ repository.Tx }

func (auditFailTx) AppendAudit(context.Context, *model.AuditEntry) error {
	return errors.New("disk full")
}

// faultyStore fails every audit append while failAudit is set.
type faultyStore struct {
	repository.Store
	failAudit atomic.Bool
}

func (f *faultyStore) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	return f.Store.InTx(ctx, func(tx repository.Tx) error {
		if f.failAudit.Load() {
			tx = auditFailTx{tx}
		}
		return fn(tx)
	})
}

type fixture struct {
	svc   *service.Service
	store *faultyStore
	eval  *stubEvaluator
	cache dedupe.Cache
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	eng, err := rules.New(config.New().SafetyRules, rules.WithClock(clock))
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	f := &fixture{
		store: &faultyStore{Store: db},
		eval:  &stubEvaluator{answers: map[string]model.ModerationResult{}},
		cache: dedupe.NewMemoryCache(),
	}
	base := []service.Option{
		service.WithClock(clock),
		service.WithRaterSalt("pepper"),
		service.WithSweepInterval(0),
		service.WithWorkerCount(2),
	}
	f.svc, err = service.New(service.Deps{
		Store:     f.store,
		Cache:     f.cache,
		Evaluator: f.eval,
		Rules:     eng,
	}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return f
}

func item(title string) model.CandidateItem {
	return model.CandidateItem{
		Type:        model.ItemEvent,
		Title:       title,
		Description: "Details for " + title,
		Location:    "Main St Hall",
		SourceURL:   "https://example.org/" + title,
		SubmittedBy: "automation:scraper",
	}
}

func submissions(items ...model.CandidateItem) []service.Submission {
	out := make([]service.Submission, len(items))
	for i, it := range items {
		out[i] = service.Submission{Item: it}
	}
	return out
}

// seedEntry publishes one item through the pipeline and returns its entry id.
func (f *fixture) seedEntry(t *testing.T, title string) string {
	t.Helper()
	rep, err := f.svc.Ingest(context.Background(), submissions(item(title)))
	if err != nil || rep.Results[0].EntryID == "" {
		t.Fatalf("seed %q: %+v %v", title, rep, err)
	}
	return rep.Results[0].EntryID
}
