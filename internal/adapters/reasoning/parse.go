package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/okian/trustgate/internal/domain/model"
)

// answer uses pointers so a missing field is distinguishable from a zero.
type answer struct {
	Confidence      *float64 `json:"confidence"`
	Relevance       *string  `json:"relevance"`
	Quality         *string  `json:"quality"`
	LiberationScore *float64 `json:"liberationScore"`
	Reasoning       *string  `json:"reasoning"`
	Recommendation  *string  `json:"recommendation"`
	Flags           []string `json:"flags"`
}

// Parse strictly decodes a reasoning answer. Code fences around the JSON are
// tolerated; unknown fields, missing fields, unknown enums and out-of-range
// numbers are not.
func Parse(text string) (model.ModerationResult, error) {
	body := stripFences(text)
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var a answer
	if err := dec.Decode(&a); err != nil {
		return model.ModerationResult{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if dec.More() {
		return model.ModerationResult{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}

	switch {
	case a.Confidence == nil:
		return missing("confidence")
	case a.Relevance == nil:
		return missing("relevance")
	case a.Quality == nil:
		return missing("quality")
	case a.LiberationScore == nil:
		return missing("liberationScore")
	case a.Reasoning == nil:
		return missing("reasoning")
	case a.Recommendation == nil:
		return missing("recommendation")
	}

	r := model.ModerationResult{
		Confidence:      *a.Confidence,
		Relevance:       model.Level(strings.ToLower(*a.Relevance)),
		Quality:         model.Level(strings.ToLower(*a.Quality)),
		LiberationScore: *a.LiberationScore,
		Reasoning:       *a.Reasoning,
		Recommendation:  model.Recommendation(strings.ToLower(*a.Recommendation)),
		Flags:           []string{},
	}
	if !unit(r.Confidence) {
		return invalid("confidence", r.Confidence)
	}
	if !unit(r.LiberationScore) {
		return invalid("liberationScore", r.LiberationScore)
	}
	if !r.Relevance.Valid() {
		return invalid("relevance", r.Relevance)
	}
	if !r.Quality.Valid() {
		return invalid("quality", r.Quality)
	}
	if !r.Recommendation.Valid() {
		return invalid("recommendation", r.Recommendation)
	}
	flags := make([]string, 0, len(a.Flags))
	for _, f := range a.Flags {
		if f = strings.TrimSpace(f); f == "" {
			return invalid("flags", "empty flag")
		}
		flags = append(flags, f)
	}
	return r.WithFlags(flags...), nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func missing(field string) (model.ModerationResult, error) {
	return model.ModerationResult{}, fmt.Errorf("%w: missing %s", ErrMalformed, field)
}

func invalid(field string, v any) (model.ModerationResult, error) {
	return model.ModerationResult{}, fmt.Errorf("%w: invalid %s %v", ErrMalformed, field, v)
}
