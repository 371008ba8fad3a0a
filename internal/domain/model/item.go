// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ItemType is the kind of content a candidate item describes.
type ItemType string

// Item types.
const (
	ItemEvent    ItemType = "event"
	ItemNews     ItemType = "news"
	ItemResource ItemType = "resource"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemEvent, ItemNews, ItemResource:
		return true
	}
	return false
}

// Submitter kinds used for default source reputation.
const (
	SubmitterAutomation = "automation"
	SubmitterPartner    = "partner"
	SubmitterManual     = "manual"
)

// CandidateItem is an ingested record awaiting triage. It is never persisted
// as-is: it either becomes a KnowledgeEntry or a ReviewItem.
type CandidateItem struct {
	Type           ItemType   `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OccurrenceDate *time.Time `json:"occurrenceDate,omitempty"`
	Location       string     `json:"location,omitempty"`
	SourceURL      string     `json:"sourceUrl"`
	OrganizerName  string     `json:"organizerName,omitempty"`
	Tags           []string   `json:"tags"`
	Price          *float64   `json:"price,omitempty"`
	SubmittedBy    string     `json:"submittedBy"` // "<kind>:<name>", e.g. "automation:meetup-scraper"
	SubmittedAt    time.Time  `json:"submittedAt"`
}

// SubmitterKind returns the kind prefix of SubmittedBy, lowercased.
func (c CandidateItem) SubmitterKind() string {
	kind, _, _ := strings.Cut(c.SubmittedBy, ":")
	return strings.ToLower(strings.TrimSpace(kind))
}

// Validate checks the fields every item needs before evaluation.
// A missing title is not reported here: the deduplicator drops those silently.
func (c CandidateItem) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrValidation, c.Type)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if strings.TrimSpace(c.SubmittedBy) == "" {
		return fmt.Errorf("%w: submittedBy is required", ErrValidation)
	}
	if c.Price != nil && *c.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

// ParseOccurrence parses a free-form occurrence date as sent by scrapers and
// partners ("2025-03-14", "14 March 2025 19:00", RFC3339, unix seconds...).
// Dates without a zone are read as UTC. Empty input yields nil.
func ParseOccurrence(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent date is not an error
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: occurrenceDate %q: %w", ErrValidation, raw, err)
	}
	t = t.UTC()
	return &t, nil
}
