package repository

import (
	"time"

	"github.com/okian/trustgate/internal/domain/model"
)

type entryRow struct {
	ID                string `gorm:"primaryKey;size:36"`
	Type              string `gorm:"size:16"`
	Title             string
	Description       string
	OccurrenceDate    *time.Time
	Location          string
	SourceURL         string
	OrganizerName     string
	Tags              []string `gorm:"serializer:json"`
	Price             *float64
	SubmittedBy       string
	Fingerprint       string `gorm:"index;size:64"`
	SourceScore       float64
	RecencyScore      float64
	VerificationScore float64
	CommunityScore    *float64
	TrustScore        float64 `gorm:"index"`
	VerificationState string  `gorm:"size:32"`
	LastVerifiedAt    time.Time
	LastCalculatedAt  time.Time
	CreatedAt         time.Time
	ArchivedAt        *time.Time `gorm:"index"`
}

func (entryRow) TableName() string { return "knowledge_entries" }

func entryToRow(e *model.KnowledgeEntry) *entryRow {
	return &entryRow{
		ID:                e.ID,
		Type:              string(e.Type),
		Title:             e.Title,
		Description:       e.Description,
		OccurrenceDate:    e.OccurrenceDate,
		Location:          e.Location,
		SourceURL:         e.SourceURL,
		OrganizerName:     e.OrganizerName,
		Tags:              e.Tags,
		Price:             e.Price,
		SubmittedBy:       e.SubmittedBy,
		Fingerprint:       e.Fingerprint,
		SourceScore:       e.SourceScore,
		RecencyScore:      e.RecencyScore,
		VerificationScore: e.VerificationScore,
		CommunityScore:    e.CommunityScore,
		TrustScore:        e.TrustScore,
		VerificationState: string(e.VerificationState),
		LastVerifiedAt:    e.LastVerifiedAt,
		LastCalculatedAt:  e.LastCalculatedAt,
		CreatedAt:         e.CreatedAt,
		ArchivedAt:        e.ArchivedAt,
	}
}

func (r *entryRow) toModel() model.KnowledgeEntry {
	return model.KnowledgeEntry{
		ID:                r.ID,
		Type:              model.ItemType(r.Type),
		Title:             r.Title,
		Description:       r.Description,
		OccurrenceDate:    utcPtr(r.OccurrenceDate),
		Location:          r.Location,
		SourceURL:         r.SourceURL,
		OrganizerName:     r.OrganizerName,
		Tags:              r.Tags,
		Price:             r.Price,
		SubmittedBy:       r.SubmittedBy,
		Fingerprint:       r.Fingerprint,
		SourceScore:       r.SourceScore,
		RecencyScore:      r.RecencyScore,
		VerificationScore: r.VerificationScore,
		CommunityScore:    r.CommunityScore,
		TrustScore:        r.TrustScore,
		VerificationState: model.VerificationState(r.VerificationState),
		LastVerifiedAt:    r.LastVerifiedAt.UTC(),
		LastCalculatedAt:  r.LastCalculatedAt.UTC(),
		CreatedAt:         r.CreatedAt.UTC(),
		ArchivedAt:        utcPtr(r.ArchivedAt),
	}
}

type ratingRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	EntryID      string `gorm:"size:36;index;uniqueIndex:idx_rating_once,priority:1"`
	RaterHash    string `gorm:"size:64;uniqueIndex:idx_rating_once,priority:2"`
	Day          string `gorm:"size:10;uniqueIndex:idx_rating_once,priority:3"`
	Rating       int
	FeedbackText string
	CreatedAt    time.Time
}

func (ratingRow) TableName() string { return "community_ratings" }

type reviewRow struct {
	ID          string                 `gorm:"primaryKey;size:36"`
	Disposition string                 `gorm:"size:16"`
	Item        model.CandidateItem    `gorm:"serializer:json"`
	Moderation  model.ModerationResult `gorm:"serializer:json"`
	Fingerprint string                 `gorm:"index;size:64"`
	Status      string                 `gorm:"index;size:16"`
	Curator     string
	EntryID     string `gorm:"size:36"`
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

func (reviewRow) TableName() string { return "review_items" }

func reviewToRow(r *model.ReviewItem) *reviewRow {
	return &reviewRow{
		ID:          r.ID,
		Disposition: string(r.Disposition),
		Item:        r.Item,
		Moderation:  r.Moderation,
		Fingerprint: r.Fingerprint,
		Status:      string(r.Status),
		Curator:     r.Curator,
		EntryID:     r.EntryID,
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func (r *reviewRow) toModel() model.ReviewItem {
	return model.ReviewItem{
		ID:          r.ID,
		Disposition: model.Disposition(r.Disposition),
		Item:        r.Item,
		Moderation:  r.Moderation,
		Fingerprint: r.Fingerprint,
		Status:      model.ReviewStatus(r.Status),
		Curator:     r.Curator,
		EntryID:     r.EntryID,
		CreatedAt:   r.CreatedAt.UTC(),
		ResolvedAt:  utcPtr(r.ResolvedAt),
	}
}

type historyRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	EntryID      string `gorm:"size:36;index:idx_history_entry,priority:1"`
	Source       float64
	Recency      float64
	Verification float64
	Community    *float64
	Trust        float64
	Reason       string `gorm:"size:32"`
	CalculatedAt time.Time `gorm:"index:idx_history_entry,priority:2"`
}

func (historyRow) TableName() string { return "score_history" }

func (r *historyRow) toModel() model.ScoreHistory {
	return model.ScoreHistory{
		ID:      r.ID,
		EntryID: r.EntryID,
		Scores: model.ScoreSet{
			Source:       r.Source,
			Recency:      r.Recency,
			Verification: r.Verification,
			Community:    r.Community,
			Trust:        r.Trust,
		},
		Reason:       r.Reason,
		CalculatedAt: r.CalculatedAt.UTC(),
	}
}

type auditRow struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	OperationType string `gorm:"size:32"`
	EntryID       string `gorm:"size:36;index:idx_audit_entry,priority:1"`
	ReviewID      string `gorm:"size:36;index"`
	ActorType     string `gorm:"size:16"`
	Actor         string
	Details       string
	Timestamp     time.Time `gorm:"column:recorded_at;index;index:idx_audit_entry,priority:2"`
}

func (auditRow) TableName() string { return "audit_entries" }

func (r *auditRow) toModel() model.AuditEntry {
	return model.AuditEntry{
		ID:            r.ID,
		OperationType: model.OperationType(r.OperationType),
		EntryID:       r.EntryID,
		ReviewID:      r.ReviewID,
		ActorType:     model.ActorType(r.ActorType),
		Actor:         r.Actor,
		Details:       []byte(r.Details),
		Timestamp:     r.Timestamp.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
