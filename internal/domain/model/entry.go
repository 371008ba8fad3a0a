package model

import "time"

// VerificationState is the human verification status of an entry.
type VerificationState string

// Verification states.
const (
	Unverified       VerificationState = "unverified"
	CommunityFlagged VerificationState = "community-flagged"
	CuratorVerified  VerificationState = "curator-verified"
)

// Valid reports whether s is a known verification state.
func (s VerificationState) Valid() bool {
	return s == Unverified || s == CommunityFlagged || s == CuratorVerified
}

// KnowledgeEntry is a published item. Scores are written only by the trust
// score engine; entries are archived, never deleted.
type KnowledgeEntry struct {
	ID             string     `json:"id"`
	Type           ItemType   `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OccurrenceDate *time.Time `json:"occurrenceDate,omitempty"`
	Location       string     `json:"location,omitempty"`
	SourceURL      string     `json:"sourceUrl"`
	OrganizerName  string     `json:"organizerName,omitempty"`
	Tags           []string   `json:"tags"`
	Price          *float64   `json:"price,omitempty"`
	SubmittedBy    string     `json:"submittedBy"`
	Fingerprint    string     `json:"fingerprint"`

	SourceScore       float64           `json:"sourceScore"`
	RecencyScore      float64           `json:"recencyScore"`
	VerificationScore float64           `json:"verificationScore"`
	CommunityScore    *float64          `json:"communityScore"`
	TrustScore        float64           `json:"trustScore"`
	VerificationState VerificationState `json:"verificationState"`

	LastVerifiedAt   time.Time  `json:"lastVerifiedAt"`
	LastCalculatedAt time.Time  `json:"lastCalculatedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
}

// Scores returns the entry's current sub-scores and trust score.
func (e KnowledgeEntry) Scores() ScoreSet {
	return ScoreSet{
		Source:       e.SourceScore,
		Recency:      e.RecencyScore,
		Verification: e.VerificationScore,
		Community:    e.CommunityScore,
		Trust:        e.TrustScore,
	}
}

// ScoreSet is the four sub-scores and their composite.
type ScoreSet struct {
	Source       float64  `json:"source"`
	Recency      float64  `json:"recency"`
	Verification float64  `json:"verification"`
	Community    *float64 `json:"community"`
	Trust        float64  `json:"trust"`
}

// ScoreHistory is one recalculation of an entry.
type ScoreHistory struct {
	ID           uint64    `json:"id"`
	EntryID      string    `json:"entryId"`
	Scores       ScoreSet  `json:"scores"`
	Reason       string    `json:"reason"`
	CalculatedAt time.Time `json:"calculatedAt"`
}
