package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/okian/trustgate/internal/adapters/repository"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/metrics"
)

const maxFeedbackLen = 2000

// RatingInput is a rating request. Rater is the caller's raw identity; only
// its keyed hash is stored.
type RatingInput struct {
	EntryID      string
	Rating       int
	FeedbackText string
	Rater        string
}

func raterKey(salt string) [32]byte {
	return blake2b.Sum256([]byte("trustgate-rater:" + salt))
}

// RaterHash returns the anonymised rater id for identity under key.
func RaterHash(key [32]byte, identity string) string {
	h, err := blake2b.New256(key[:])
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(identity))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) raterHash(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", fmt.Errorf("%w: rater identity is required", model.ErrValidation)
	}
	return RaterHash(s.raterKey, identity), nil
}

func (s *Service) rating(in RatingInput) (model.CommunityRating, error) {
	hash, err := s.raterHash(in.Rater)
	if err != nil {
		return model.CommunityRating{}, err
	}
	feedback := strings.TrimSpace(in.FeedbackText)
	if utf8.RuneCountInString(feedback) > maxFeedbackLen {
		return model.CommunityRating{}, fmt.Errorf("%w: feedbackText exceeds %d characters", model.ErrValidation, maxFeedbackLen)
	}
	now := s.engine.Now()
	r := model.CommunityRating{
		ID:           uuid.NewString(),
		EntryID:      strings.TrimSpace(in.EntryID),
		RaterHash:    hash,
		Rating:       in.Rating,
		FeedbackText: feedback,
		Day:          model.RatingDay(now),
		CreatedAt:    now,
	}
	return r, r.Validate()
}

// Rate records a new rating and returns the entry's recalculated trust score.
// A second rating by the same rater on the same entry and UTC day fails with
// repository.ErrDuplicateRating and changes nothing.
func (s *Service) Rate(ctx context.Context, in RatingInput) (float64, error) {
	r, err := s.rating(in)
	if err != nil {
		metrics.RecordRating("invalid")
		return 0, err
	}
	ev := model.RatingEvent{EntryID: r.EntryID, Kind: model.RatingCreated, At: r.CreatedAt}
	score, err := s.trigger.Apply(ctx, ev, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureOpen(ctx, tx, r.EntryID); err != nil {
			return err
		}
		return tx.AddRating(ctx, &r)
	})
	recordRatingOutcome(string(model.RatingCreated), err)
	return score, err
}

// UpdateRating replaces the caller's most recent rating on the entry.
func (s *Service) UpdateRating(ctx context.Context, in RatingInput) (float64, error) {
	r, err := s.rating(in)
	if err != nil {
		metrics.RecordRating("invalid")
		return 0, err
	}
	ev := model.RatingEvent{EntryID: r.EntryID, Kind: model.RatingUpdated, At: r.CreatedAt}
	score, err := s.trigger.Apply(ctx, ev, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureOpen(ctx, tx, r.EntryID); err != nil {
			return err
		}
		return tx.ReplaceLatestRating(ctx, r.EntryID, r.RaterHash, r.Rating, r.FeedbackText)
	})
	recordRatingOutcome(string(model.RatingUpdated), err)
	return score, err
}

// DeleteRatings removes the caller's ratings on the entry and returns the
// recalculated trust score. The removal commits only together with the
// recalculation and its audit entry.
func (s *Service) DeleteRatings(ctx context.Context, entryID, rater string) (float64, error) {
	hash, err := s.raterHash(rater)
	if err != nil {
		return 0, err
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return 0, fmt.Errorf("%w: entryId is required", model.ErrValidation)
	}

	ev := model.RatingEvent{EntryID: entryID, Kind: model.RatingDeleted, At: s.engine.Now()}
	score, err := s.trigger.Apply(ctx, ev, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetEntry(ctx, entryID); err != nil {
			return err
		}
		n, err := tx.DeleteRatings(ctx, entryID, hash)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: no ratings by caller on %s", repository.ErrNotFound, entryID)
		}
		return nil
	})
	recordRatingOutcome(string(model.RatingDeleted), err)
	return score, err
}

func ensureOpen(ctx context.Context, tx repository.Reader, entryID string) error {
	e, err := tx.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if e.ArchivedAt != nil {
		return fmt.Errorf("%w: entry %s is archived", repository.ErrConflict, entryID)
	}
	return nil
}

func recordRatingOutcome(kind string, err error) {
	switch {
	case err == nil:
		metrics.RecordRating(kind)
	case errors.Is(err, repository.ErrDuplicateRating):
		metrics.RecordRating("duplicate")
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordRating("not_found")
	default:
		metrics.RecordRating("error")
	}
}
