package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/trustgate/internal/adapters/repository"
	"github.com/okian/trustgate/internal/domain/audit"
	"github.com/okian/trustgate/internal/domain/dedupe"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/triage"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"
)

// Per-item statuses besides the dispositions.
const (
	StatusDuplicate = "duplicate"
	StatusInvalid   = "invalid"
	StatusMalformed = "malformed"
	StatusFailed    = "failed"
)

// Submission is one item of an ingested batch. Err is set when the item could
// not be decoded; it is then reported as invalid without evaluation.
type Submission struct {
	Item model.CandidateItem
	Err  error
}

// ItemResult is the outcome for one submitted item, in submission order.
type ItemResult struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
	EntryID  string `json:"entry_id,omitempty"`
	ReviewID string `json:"review_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// IngestStats counts a batch's outcomes. Malformed and invalid items count as failed.
type IngestStats struct {
	Total            int   `json:"total"`
	AutoApproved     int   `json:"auto_approved"`
	ReviewQuick      int   `json:"review_quick"`
	ReviewDeep       int   `json:"review_deep"`
	Duplicates       int   `json:"duplicates"`
	Failed           int   `json:"failed"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// IngestReport is the result of one batch.
type IngestReport struct {
	Stats   IngestStats  `json:"stats"`
	Results []ItemResult `json:"results"`
}

type triageDetails struct {
	Disposition model.Disposition      `json:"disposition"`
	Moderation  model.ModerationResult `json:"moderation"`
	Fingerprint string                 `json:"fingerprint"`
	SubmittedBy string                 `json:"submittedBy"`
	TrustScore  *float64               `json:"trustScore,omitempty"`
}

// Ingest triages a batch. Individual items may fall back, fail or be dropped
// without failing the batch; only request-level problems return an error.
func (s *Service) Ingest(ctx context.Context, batch []Submission) (IngestReport, error) {
	start := time.Now()
	if len(batch) == 0 {
		return IngestReport{}, ErrEmptyBatch
	}
	if len(batch) > s.maxBatchSize {
		return IngestReport{}, fmt.Errorf("%w: %d items, limit is %d", ErrBatchTooLarge, len(batch), s.maxBatchSize)
	}
	metrics.RecordItemsReceived(len(batch))

	results := make([]ItemResult, len(batch))
	candidates := make([]model.CandidateItem, 0, len(batch))
	positions := make([]int, 0, len(batch))
	for i, sub := range batch {
		results[i].Title = sub.Item.Title
		err := sub.Err
		if err == nil && strings.TrimSpace(sub.Item.Title) != "" {
			err = sub.Item.Validate()
		}
		if err != nil {
			results[i].Status = StatusInvalid
			results[i].Error = err.Error()
			metrics.RecordItemFailure(StatusInvalid)
			continue
		}
		candidates = append(candidates, sub.Item)
		positions = append(positions, i)
	}

	deduped, err := s.dedupe.Dedupe(ctx, candidates)
	if err != nil {
		s.logger.Error(ctx, "dedupe failed, rejecting batch", logger.Error(err))
		return IngestReport{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for _, j := range deduped.Malformed {
		r := &results[positions[j]]
		r.Status, r.Error = StatusMalformed, "title must contain letters or digits"
		metrics.RecordItemMalformed()
	}
	for _, j := range deduped.Duplicates {
		r := &results[positions[j]]
		r.Status, r.Success = StatusDuplicate, true
		metrics.RecordItemDuplicate()
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, k := range deduped.Kept {
		pos := positions[k.Index]
		g.Go(func() error {
			results[pos] = s.process(ctx, k)
			return nil
		})
	}
	_ = g.Wait()

	report := IngestReport{Results: results}
	report.Stats = tally(results)
	report.Stats.ProcessingTimeMs = time.Since(start).Milliseconds()
	metrics.RecordBatchLatency(float64(report.Stats.ProcessingTimeMs))
	metrics.UpdateDedupeCacheSize(int(s.dedupe.Size()))

	s.logger.Info(ctx, "batch triaged",
		logger.Int("total", report.Stats.Total),
		logger.Int("auto_approved", report.Stats.AutoApproved),
		logger.Int("review_quick", report.Stats.ReviewQuick),
		logger.Int("review_deep", report.Stats.ReviewDeep),
		logger.Int("duplicates", report.Stats.Duplicates),
		logger.Int("failed", report.Stats.Failed),
		logger.Any("processing_time_ms", report.Stats.ProcessingTimeMs),
	)
	return report, nil
}

func tally(results []ItemResult) IngestStats {
	st := IngestStats{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case string(model.AutoApproved):
			st.AutoApproved++
		case string(model.ReviewQuick):
			st.ReviewQuick++
		case string(model.ReviewDeep):
			st.ReviewDeep++
		case StatusDuplicate:
			st.Duplicates++
		default:
			st.Failed++
		}
	}
	return st
}

// process evaluates, classifies and persists one kept item. If it does not
// complete, its fingerprint is released so the item can be submitted again.
func (s *Service) process(ctx context.Context, k dedupe.Kept) ItemResult {
	res := ItemResult{Title: k.Item.Title}
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, k, res, "cancelled", err)
	}

	mod := s.evaluator.Evaluate(ctx, k.Item)
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, k, res, "cancelled", err)
	}
	if s.rules != nil {
		mod = s.rules.Apply(ctx, k.Item, mod)
	}
	disposition := triage.Classify(mod)

	var err error
	if disposition == model.AutoApproved {
		res.EntryID, err = s.publish(ctx, k, mod)
	} else {
		res.ReviewID, err = s.holdForReview(ctx, k, mod, disposition)
	}
	if err != nil {
		res.EntryID, res.ReviewID = "", ""
		reason := "persist"
		if errors.Is(err, audit.ErrAuditWrite) {
			reason = "audit"
		}
		return s.fail(ctx, k, res, reason, err)
	}

	metrics.RecordDisposition(string(disposition))
	res.Status = string(disposition)
	res.Success = true
	return res
}

func (s *Service) fail(ctx context.Context, k dedupe.Kept, res ItemResult, reason string, err error) ItemResult {
	if ferr := s.dedupe.Forget(context.WithoutCancel(ctx), k.Fingerprint); ferr != nil {
		s.logger.Warn(ctx, "could not release fingerprint", logger.String("fingerprint", k.Fingerprint), logger.Error(ferr))
	}
	metrics.RecordItemFailure(reason)
	s.logger.Error(ctx, "item not triaged",
		logger.String("title", k.Item.Title),
		logger.String("reason", reason),
		logger.Error(err),
	)
	res.Status = StatusFailed
	res.Error = err.Error()
	return res
}

func newEntry(item model.CandidateItem, fingerprint string, sourceScore float64) model.KnowledgeEntry {
	return model.KnowledgeEntry{
		ID:                uuid.NewString(),
		Type:              item.Type,
		Title:             strings.TrimSpace(item.Title),
		Description:       item.Description,
		OccurrenceDate:    item.OccurrenceDate,
		Location:          item.Location,
		SourceURL:         item.SourceURL,
		OrganizerName:     item.OrganizerName,
		Tags:              item.Tags,
		Price:             item.Price,
		SubmittedBy:       item.SubmittedBy,
		Fingerprint:       fingerprint,
		SourceScore:       sourceScore,
		VerificationState: model.Unverified,
	}
}

func (s *Service) publish(ctx context.Context, k dedupe.Kept, mod model.ModerationResult) (string, error) {
	entry := newEntry(k.Item, k.Fingerprint, s.reputation.Score(k.Item))
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := s.engine.Create(ctx, tx, &entry); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpTriage,
			EntryID:   entry.ID,
			Actor:     model.ActorSystem,
			ActorName: "triage",
			Details: triageDetails{
				Disposition: model.AutoApproved,
				Moderation:  mod,
				Fingerprint: k.Fingerprint,
				SubmittedBy: k.Item.SubmittedBy,
				TrustScore:  &entry.TrustScore,
			},
		})
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *Service) holdForReview(ctx context.Context, k dedupe.Kept, mod model.ModerationResult, d model.Disposition) (string, error) {
	review := model.ReviewItem{
		ID:          uuid.NewString(),
		Disposition: d,
		Item:        k.Item,
		Moderation:  mod,
		Fingerprint: k.Fingerprint,
		Status:      model.ReviewPending,
		CreatedAt:   s.engine.Now(),
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateReview(ctx, &review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return s.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpTriage,
			ReviewID:  review.ID,
			Actor:     model.ActorSystem,
			ActorName: "triage",
			Details: triageDetails{
				Disposition: d,
				Moderation:  mod,
				Fingerprint: k.Fingerprint,
				SubmittedBy: k.Item.SubmittedBy,
			},
		})
	})
	if err != nil {
		return "", err
	}
	return review.ID, nil
}
