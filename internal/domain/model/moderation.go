package model

import "slices"

// Level grades relevance and quality.
type Level string

// Levels.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

// Recommendation is the reasoning service's suggested routing.
type Recommendation string

// Recommendations.
const (
	RecommendAutoApprove Recommendation = "auto-approve"
	RecommendReview      Recommendation = "review"
	RecommendReject      Recommendation = "reject"
)

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	return r == RecommendAutoApprove || r == RecommendReview || r == RecommendReject
}

// FlagModerationError marks a result produced without a usable reasoning answer.
const FlagModerationError = "moderation-error"

// ModerationResult is the judgement for one candidate item. Treat values as
// immutable: WithFlags returns a new value.
type ModerationResult struct {
	Confidence      float64        `json:"confidence"`
	Relevance       Level          `json:"relevance"`
	Quality         Level          `json:"quality"`
	LiberationScore float64        `json:"liberationScore"`
	Reasoning       string         `json:"reasoning"`
	Recommendation  Recommendation `json:"recommendation"`
	Flags           []string       `json:"flags"`
}

// Fallback is the conservative result used whenever the reasoning answer
// cannot be trusted. It always routes to deep review.
func Fallback() ModerationResult {
	return ModerationResult{
		Confidence:      0,
		Relevance:       LevelLow,
		Quality:         LevelLow,
		LiberationScore: 0,
		Recommendation:  RecommendReview,
		Flags:           []string{FlagModerationError},
	}
}

// IsFallback reports whether r carries the moderation-error flag.
func (r ModerationResult) IsFallback() bool {
	return slices.Contains(r.Flags, FlagModerationError)
}

// WithFlags returns a copy of r with flags appended, skipping ones already present.
func (r ModerationResult) WithFlags(flags ...string) ModerationResult {
	out := r
	out.Flags = slices.Clone(r.Flags)
	for _, f := range flags {
		if f != "" && !slices.Contains(out.Flags, f) {
			out.Flags = append(out.Flags, f)
		}
	}
	return out
}
