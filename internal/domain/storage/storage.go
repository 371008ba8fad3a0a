// Package storage declares the persistence contract the domain writes
// through. internal/adapters/repository implements it.
package storage

import (
	"context"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
)

// AuditFilter selects audit entries. Zero times leave that bound open.
type AuditFilter struct {
	EntryID string
	From    time.Time
	To      time.Time
	Limit   int
}

// Reader provides queries available inside and outside transactions.
type Reader interface {
	// GetEntry returns ErrNotFound if the entry is unknown.
	GetEntry(ctx context.Context, id string) (model.KnowledgeEntry, error)
	// ListEntryIDs returns entry ids, optionally including archived ones.
	ListEntryIDs(ctx context.Context, includeArchived bool) ([]string, error)
	// CountEntries returns the number of non-archived entries.
	CountEntries(ctx context.Context) (int64, error)
	// RatingValues returns every rating value recorded for an entry.
	RatingValues(ctx context.Context, entryID string) ([]int, error)
	// History returns recalculations of an entry, newest first.
	History(ctx context.Context, entryID string, limit int) ([]model.ScoreHistory, error)
	// AuditTrail returns audit entries in timestamp order.
	AuditTrail(ctx context.Context, f AuditFilter) ([]model.AuditEntry, error)
	// GetReview returns ErrNotFound if the review is unknown.
	GetReview(ctx context.Context, id string) (model.ReviewItem, error)
	// ListReviews returns reviews with status, oldest first.
	ListReviews(ctx context.Context, status model.ReviewStatus, limit int) ([]model.ReviewItem, error)
	CountReviews(ctx context.Context, status model.ReviewStatus) (int64, error)
}

// Tx is a unit of work. Every write happens through a Tx so that a change
// and its audit entry commit together.
type Tx interface {
	Reader

	CreateEntry(ctx context.Context, e *model.KnowledgeEntry) error
	// UpdateScores overwrites the sub-scores, trust score and calculation time.
	UpdateScores(ctx context.Context, id string, s model.ScoreSet, calculatedAt time.Time) error
	// SetVerification changes the verification state and resets lastVerifiedAt.
	SetVerification(ctx context.Context, id string, state model.VerificationState, at time.Time) error
	// Archive returns ErrConflict if the entry is already archived.
	Archive(ctx context.Context, id string, at time.Time) error

	CreateReview(ctx context.Context, r *model.ReviewItem) error
	// ResolveReview returns ErrConflict unless the review is pending.
	ResolveReview(ctx context.Context, id string, status model.ReviewStatus, curator, entryID string, at time.Time) error

	// AddRating returns ErrDuplicateRating for a second rating by the same
	// rater on the same entry and day.
	AddRating(ctx context.Context, r *model.CommunityRating) error
	// ReplaceLatestRating returns ErrNotFound if the rater has no rating on the entry.
	ReplaceLatestRating(ctx context.Context, entryID, raterHash string, rating int, feedback string) error
	// DeleteRatings removes every rating by the rater on the entry.
	DeleteRatings(ctx context.Context, entryID, raterHash string) (int64, error)

	AppendHistory(ctx context.Context, h *model.ScoreHistory) error
	AppendAudit(ctx context.Context, a *model.AuditEntry) error
}

// Store provides read access and transactions.
type Store interface {
	Reader

	// InTx runs fn in a transaction, committing if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
