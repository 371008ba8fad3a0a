package reasoning

import (
	"context"
	"errors"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/logger"
	"github.com/okian/trustgate/pkg/metrics"
)

// Fallback reasons reported in metrics and logs.
const (
	reasonTimeout     = "timeout"
	reasonCancelled   = "cancelled"
	reasonRateLimited = "rate_limited"
	reasonStatus      = "status"
	reasonMalformed   = "malformed"
	reasonTransport   = "transport"
)

// Adapter evaluates candidate items. It never returns an error: any failure
// yields the conservative fallback, which always routes to deep review.
type Adapter struct {
	reasoner Reasoner
	timeout  time.Duration
	logger   logger.Logger
}

// NewAdapter creates an Adapter over r.
func NewAdapter(r Reasoner, opts ...Option) *Adapter {
	a := &Adapter{
		reasoner: r,
		timeout:  defaultTimeout,
		logger:   logger.Get().Named("reasoning"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluate judges item once. There is no retry.
func (a *Adapter) Evaluate(ctx context.Context, item model.CandidateItem) model.ModerationResult {
	start := time.Now()
	result, err := a.evaluate(ctx, item)
	metrics.RecordReasoningLatency(float64(time.Since(start).Milliseconds()))
	if err == nil {
		metrics.RecordReasoningRequest("ok")
		return result
	}

	reason := classify(ctx, err)
	metrics.RecordReasoningRequest("error")
	metrics.RecordReasoningFallback(reason)
	metrics.RecordErrorByComponent("reasoning", reason)
	a.logger.Warn(ctx, "reasoning failed, using fallback",
		logger.String("title", item.Title),
		logger.String("reason", reason),
		logger.Error(err),
	)
	return model.Fallback()
}

func (a *Adapter) evaluate(ctx context.Context, item model.CandidateItem) (model.ModerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt, err := buildPrompt(item)
	if err != nil {
		return model.ModerationResult{}, err
	}
	text, err := a.reasoner.Complete(ctx, rubric, prompt)
	if err != nil {
		return model.ModerationResult{}, err
	}
	return Parse(text)
}

func classify(parent context.Context, err error) string {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return reasonCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, ErrRateLimited):
		return reasonRateLimited
	case errors.Is(err, ErrStatus):
		return reasonStatus
	case errors.Is(err, ErrMalformed):
		return reasonMalformed
	default:
		return reasonTransport
	}
}
