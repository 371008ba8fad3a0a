// Package triage maps a moderation result to a disposition.
package triage

import (
	"math"

	"github.com/okian/trustgate/internal/domain/model"
)

// Confidence thresholds.
const (
	AutoApproveConfidence = 0.90
	ReviewQuickConfidence = 0.70
)

// Classify routes a moderation result. Any flag, a reject recommendation or
// low confidence sends the item to deep review; only an explicit
// auto-approve recommendation with high confidence publishes without a human.
// Classify never returns model.Rejected: rejection is a curator decision.
func Classify(r model.ModerationResult) model.Disposition {
	if len(r.Flags) > 0 ||
		r.Recommendation == model.RecommendReject ||
		math.IsNaN(r.Confidence) ||
		r.Confidence < ReviewQuickConfidence {
		return model.ReviewDeep
	}
	if r.Recommendation == model.RecommendAutoApprove && r.Confidence >= AutoApproveConfidence {
		return model.AutoApproved
	}
	return model.ReviewQuick
}
