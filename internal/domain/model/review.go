package model

import "time"

// ReviewStatus is the curator workflow state of a review item.
type ReviewStatus string

// Review statuses.
const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewItem is a candidate that needs a human decision.
type ReviewItem struct {
	ID          string           `json:"id"`
	Disposition Disposition      `json:"disposition"`
	Item        CandidateItem    `json:"item"`
	Moderation  ModerationResult `json:"moderation"`
	Fingerprint string           `json:"fingerprint"`
	Status      ReviewStatus     `json:"status"`
	Curator     string           `json:"curator,omitempty"`
	EntryID     string           `json:"entryId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	ResolvedAt  *time.Time       `json:"resolvedAt,omitempty"`
}
