package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okian/trustgate/internal/domain/model"
)

const defaultListLimit = 100

// GormStore implements Store over GORM.
type GormStore struct {
	queries
}

var _ Store = (*GormStore)(nil)

// InTx runs fn in a database transaction.
func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&queries{db: db})
	})
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}

// queries holds every statement; bound to the pool or to a transaction.
type queries struct {
	db *gorm.DB
}

var _ Tx = (*queries)(nil)

func (q *queries) conn(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func limitOr(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// Entries.

func (q *queries) GetEntry(ctx context.Context, id string) (model.KnowledgeEntry, error) {
	var row entryRow
	if err := q.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.KnowledgeEntry{}, notFound(err, "entry", id)
	}
	return row.toModel(), nil
}

func (q *queries) ListEntryIDs(ctx context.Context, includeArchived bool) ([]string, error) {
	var ids []string
	db := q.conn(ctx).Model(&entryRow{})
	if !includeArchived {
		db = db.Where("archived_at IS NULL")
	}
	if err := db.Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (q *queries) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.conn(ctx).Model(&entryRow{}).Where("archived_at IS NULL").Count(&n).Error
	return n, err
}

func (q *queries) CreateEntry(ctx context.Context, e *model.KnowledgeEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return q.conn(ctx).Create(entryToRow(e)).Error
}

func (q *queries) UpdateScores(ctx context.Context, id string, s model.ScoreSet, calculatedAt time.Time) error {
	res := q.conn(ctx).Model(&entryRow{}).Where("id = ?", id).Updates(map[string]any{
		"source_score":       s.Source,
		"recency_score":      s.Recency,
		"verification_score": s.Verification,
		"community_score":    s.Community,
		"trust_score":        s.Trust,
		"last_calculated_at": calculatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return nil
}

func (q *queries) SetVerification(ctx context.Context, id string, state model.VerificationState, at time.Time) error {
	res := q.conn(ctx).Model(&entryRow{}).Where("id = ?", id).Updates(map[string]any{
		"verification_state": string(state),
		"last_verified_at":   at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return nil
}

func (q *queries) Archive(ctx context.Context, id string, at time.Time) error {
	res := q.conn(ctx).Model(&entryRow{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := q.GetEntry(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: entry %s already archived", ErrConflict, id)
	}
	return nil
}

// Reviews.

func (q *queries) CreateReview(ctx context.Context, r *model.ReviewItem) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return q.conn(ctx).Create(reviewToRow(r)).Error
}

func (q *queries) GetReview(ctx context.Context, id string) (model.ReviewItem, error) {
	var row reviewRow
	if err := q.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.ReviewItem{}, notFound(err, "review", id)
	}
	return row.toModel(), nil
}

func (q *queries) ListReviews(ctx context.Context, status model.ReviewStatus, limit int) ([]model.ReviewItem, error) {
	var rows []reviewRow
	err := q.conn(ctx).Where("status = ?", string(status)).
		Order("created_at").Limit(limitOr(limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.ReviewItem, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (q *queries) CountReviews(ctx context.Context, status model.ReviewStatus) (int64, error) {
	var n int64
	err := q.conn(ctx).Model(&reviewRow{}).Where("status = ?", string(status)).Count(&n).Error
	return n, err
}

func (q *queries) ResolveReview(ctx context.Context, id string, status model.ReviewStatus, curator, entryID string, at time.Time) error {
	res := q.conn(ctx).Model(&reviewRow{}).
		Where("id = ? AND status = ?", id, string(model.ReviewPending)).
		Updates(map[string]any{
			"status":      string(status),
			"curator":     curator,
			"entry_id":    entryID,
			"resolved_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := q.GetReview(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: review %s is not pending", ErrConflict, id)
	}
	return nil
}

// Ratings.

func (q *queries) AddRating(ctx context.Context, r *model.CommunityRating) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	row := &ratingRow{
		ID:           r.ID,
		EntryID:      r.EntryID,
		RaterHash:    r.RaterHash,
		Day:          r.Day,
		Rating:       r.Rating,
		FeedbackText: r.FeedbackText,
		CreatedAt:    r.CreatedAt,
	}
	if err := q.conn(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: entry %s day %s", ErrDuplicateRating, r.EntryID, r.Day)
		}
		return err
	}
	return nil
}

func (q *queries) ReplaceLatestRating(ctx context.Context, entryID, raterHash string, rating int, feedback string) error {
	var row ratingRow
	err := q.conn(ctx).Where("entry_id = ? AND rater_hash = ?", entryID, raterHash).
		Order("created_at DESC").First(&row).Error
	if err != nil {
		return notFound(err, "rating on entry", entryID)
	}
	return q.conn(ctx).Model(&ratingRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"rating":        rating,
		"feedback_text": feedback,
	}).Error
}

func (q *queries) DeleteRatings(ctx context.Context, entryID, raterHash string) (int64, error) {
	res := q.conn(ctx).Where("entry_id = ? AND rater_hash = ?", entryID, raterHash).Delete(&ratingRow{})
	return res.RowsAffected, res.Error
}

func (q *queries) RatingValues(ctx context.Context, entryID string) ([]int, error) {
	var values []int
	err := q.conn(ctx).Model(&ratingRow{}).Where("entry_id = ?", entryID).
		Order("created_at").Pluck("rating", &values).Error
	return values, err
}

// History and audit.

func (q *queries) AppendHistory(ctx context.Context, h *model.ScoreHistory) error {
	row := &historyRow{
		EntryID:      h.EntryID,
		Source:       h.Scores.Source,
		Recency:      h.Scores.Recency,
		Verification: h.Scores.Verification,
		Community:    h.Scores.Community,
		Trust:        h.Scores.Trust,
		Reason:       h.Reason,
		CalculatedAt: h.CalculatedAt,
	}
	if err := q.conn(ctx).Create(row).Error; err != nil {
		return err
	}
	h.ID = row.ID
	return nil
}

func (q *queries) History(ctx context.Context, entryID string, limit int) ([]model.ScoreHistory, error) {
	var rows []historyRow
	err := q.conn(ctx).Where("entry_id = ?", entryID).
		Order("calculated_at DESC, id DESC").Limit(limitOr(limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.ScoreHistory, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (q *queries) AppendAudit(ctx context.Context, a *model.AuditEntry) error {
	row := &auditRow{
		OperationType: string(a.OperationType),
		EntryID:       a.EntryID,
		ReviewID:      a.ReviewID,
		ActorType:     string(a.ActorType),
		Actor:         a.Actor,
		Details:       string(a.Details),
		Timestamp:     a.Timestamp,
	}
	if err := q.conn(ctx).Create(row).Error; err != nil {
		return err
	}
	a.ID = row.ID
	return nil
}

func (q *queries) AuditTrail(ctx context.Context, f AuditFilter) ([]model.AuditEntry, error) {
	db := q.conn(ctx).Model(&auditRow{})
	if f.EntryID != "" {
		db = db.Where("entry_id = ?", f.EntryID)
	}
	if !f.From.IsZero() {
		db = db.Where("recorded_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		db = db.Where("recorded_at <= ?", f.To.UTC())
	}
	var rows []auditRow
	if err := db.Order("recorded_at, id").Limit(limitOr(f.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.AuditEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}
