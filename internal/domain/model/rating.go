package model

import (
	"fmt"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// CommunityRating is one rater's score for an entry on one UTC day.
type CommunityRating struct {
	ID           string    `json:"id"`
	EntryID      string    `json:"entryId"`
	RaterHash    string    `json:"-"`
	Rating       int       `json:"rating"`
	FeedbackText string    `json:"feedbackText,omitempty"`
	Day          string    `json:"day"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Validate checks the rating value and required identifiers.
func (r CommunityRating) Validate() error {
	if r.EntryID == "" {
		return fmt.Errorf("%w: entryId is required", ErrValidation)
	}
	if r.RaterHash == "" {
		return fmt.Errorf("%w: rater is required", ErrValidation)
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	}
	return nil
}

// RatingDay returns the UTC calendar day key for t.
func RatingDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// RatingEventKind is what happened to a rating.
type RatingEventKind string

// Rating event kinds.
const (
	RatingCreated RatingEventKind = "created"
	RatingUpdated RatingEventKind = "updated"
	RatingDeleted RatingEventKind = "deleted"
)

// RatingEvent asks for the affected entry to be recalculated.
type RatingEvent struct {
	EntryID string
	Kind    RatingEventKind
	At      time.Time
}
