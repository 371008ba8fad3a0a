// Package scoring computes and maintains the trust score of knowledge entries.
package scoring

import (
	"math"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
)

// Verification step values.
const (
	UnverifiedScore       = 0.3
	CommunityFlaggedScore = 0.1
	CuratorVerifiedScore  = 1.0
)

// Weights are the relative importance of each sub-score. They need not sum
// to one: Composite normalises by the weights actually used.
type Weights struct {
	Source       float64
	Recency      float64
	Verification float64
	Community    float64
}

// DefaultWeights returns 0.3/0.2/0.3/0.2.
func DefaultWeights() Weights {
	return Weights{Source: 0.3, Recency: 0.2, Verification: 0.3, Community: 0.2}
}

// Clamp bounds v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// RecencyScore halves every halfLife since lastVerified and never drops below
// floor. Age is counted in whole hours so the score is stable within an hour.
func RecencyScore(lastVerified, now time.Time, halfLife time.Duration, floor float64) float64 {
	ageHours := math.Floor(now.Sub(lastVerified).Hours())
	if ageHours < 0 {
		ageHours = 0
	}
	decay := math.Pow(0.5, ageHours/halfLife.Hours())
	return Clamp(math.Max(floor, decay))
}

// VerificationScore maps a verification state to its step value.
func VerificationScore(state model.VerificationState) float64 {
	switch state {
	case model.CuratorVerified:
		return CuratorVerifiedScore
	case model.CommunityFlagged:
		return CommunityFlaggedScore
	default:
		return UnverifiedScore
	}
}

// CommunityScore is the mean rating mapped from 1..5 onto 0..1, or nil when
// there are no ratings.
func CommunityScore(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	v := Clamp((mean - model.MinRating) / (model.MaxRating - model.MinRating))
	return &v
}

// Composite is the weighted mean of the present sub-scores. An absent
// community score drops out and the other weights are renormalised.
func Composite(s model.ScoreSet, w Weights) float64 {
	total := w.Source*Clamp(s.Source) + w.Recency*Clamp(s.Recency) + w.Verification*Clamp(s.Verification)
	weight := w.Source + w.Recency + w.Verification
	if s.Community != nil {
		total += w.Community * Clamp(*s.Community)
		weight += w.Community
	}
	if weight <= 0 {
		return 0
	}
	return Clamp(total / weight)
}
