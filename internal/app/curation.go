package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/trustgate/internal/adapters/repository"
	"github.com/okian/trustgate/internal/domain/audit"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/scoring"
)

// Decision resolves a review.
type Decision string

// Decisions.
const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func curatorName(curator string) (string, error) {
	curator = strings.TrimSpace(curator)
	if curator == "" {
		return "", fmt.Errorf("%w: curator is required", model.ErrValidation)
	}
	return curator, nil
}

// SetVerification changes an entry's verification state and recalculates it.
func (s *Service) SetVerification(ctx context.Context, entryID string, state model.VerificationState, curator string) (float64, error) {
	curator, err := curatorName(curator)
	if err != nil {
		return 0, err
	}
	if !state.Valid() {
		return 0, fmt.Errorf("%w: unknown verification state %q", model.ErrValidation, state)
	}

	return s.engine.Update(ctx, entryID, scoring.ReasonVerification, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if e.ArchivedAt != nil {
			return fmt.Errorf("%w: entry %s is archived", repository.ErrConflict, entryID)
		}
		if err := tx.SetVerification(ctx, entryID, state, s.engine.Now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpVerification,
			EntryID:   entryID,
			Actor:     model.ActorCurator,
			ActorName: curator,
			Details:   map[string]string{"from": string(e.VerificationState), "to": string(state)},
		})
	})
}

// Archive hides an entry from sweeps and ratings. Entries are never deleted.
func (s *Service) Archive(ctx context.Context, entryID, curator string) error {
	curator, err := curatorName(curator)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.Archive(ctx, entryID, s.engine.Now()); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpArchive,
			EntryID:   entryID,
			Actor:     model.ActorCurator,
			ActorName: curator,
			Details:   map[string]string{},
		})
	})
}

// ResolveReview approves or rejects a pending review. Approval publishes the
// item as a curator-verified entry.
func (s *Service) ResolveReview(ctx context.Context, reviewID string, decision Decision, curator string) (model.ReviewItem, error) {
	curator, err := curatorName(curator)
	if err != nil {
		return model.ReviewItem{}, err
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return model.ReviewItem{}, fmt.Errorf("%w: decision must be approve or reject", model.ErrValidation)
	}

	var resolved model.ReviewItem
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := tx.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if r.Status != model.ReviewPending {
			return fmt.Errorf("%w: review %s is %s", repository.ErrConflict, reviewID, r.Status)
		}

		now := s.engine.Now()
		status := model.ReviewRejected
		var entryID string
		if decision == DecisionApprove {
			status = model.ReviewApproved
			entry := newEntry(r.Item, r.Fingerprint, s.reputation.Score(r.Item))
			entry.VerificationState = model.CuratorVerified
			entry.LastVerifiedAt = now
			if err := s.engine.Create(ctx, tx, &entry); err != nil {
				return err
			}
			entryID = entry.ID
			if err := s.audit.Record(ctx, tx, audit.Event{
				Operation: model.OpEntryCreated,
				EntryID:   entryID,
				ReviewID:  reviewID,
				Actor:     model.ActorCurator,
				ActorName: curator,
				Details:   map[string]any{"disposition": r.Disposition, "trustScore": entry.TrustScore},
			}); err != nil {
				return err
			}
		}

		if err := tx.ResolveReview(ctx, reviewID, status, curator, entryID, now); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, audit.Event{
			Operation: model.OpReviewResolve,
			EntryID:   entryID,
			ReviewID:  reviewID,
			Actor:     model.ActorCurator,
			ActorName: curator,
			Details:   map[string]any{"decision": decision, "disposition": r.Disposition},
		}); err != nil {
			return err
		}

		resolved, err = tx.GetReview(ctx, reviewID)
		return err
	})
	if err != nil {
		return model.ReviewItem{}, err
	}
	return resolved, nil
}

// GetEntry returns one entry.
func (s *Service) GetEntry(ctx context.Context, id string) (model.KnowledgeEntry, error) {
	return s.store.GetEntry(ctx, id)
}

// History returns an entry's recalculations, newest first.
func (s *Service) History(ctx context.Context, entryID string, limit int) ([]model.ScoreHistory, error) {
	if _, err := s.store.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, entryID, limit)
}

// AuditTrail returns an entry's audit entries within [from, to].
func (s *Service) AuditTrail(ctx context.Context, entryID string, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", model.ErrValidation)
	}
	if _, err := s.store.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.store.AuditTrail(ctx, repository.AuditFilter{EntryID: entryID, From: from, To: to, Limit: limit})
}

// Reviews lists reviews with status, oldest first.
func (s *Service) Reviews(ctx context.Context, status model.ReviewStatus, limit int) ([]model.ReviewItem, error) {
	switch status {
	case model.ReviewPending, model.ReviewApproved, model.ReviewRejected:
	case "":
		status = model.ReviewPending
	default:
		return nil, fmt.Errorf("%w: unknown review status %q", model.ErrValidation, status)
	}
	return s.store.ListReviews(ctx, status, limit)
}

// Recalculate recomputes one entry on demand.
func (s *Service) Recalculate(ctx context.Context, entryID string) (float64, error) {
	return s.engine.Recalculate(ctx, entryID, scoring.ReasonManual)
}
