// Package rules evaluates deterministic safety rules over candidate items.
// Each rule is a named CEL boolean expression; a rule that holds contributes
// its name as a red flag.
package rules

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/pkg/metrics"
)

// ErrorFlagPrefix prefixes the flag raised when a rule cannot be evaluated.
const ErrorFlagPrefix = "rule-error:"

type rule struct {
	name    string
	program cel.Program
}

// Engine holds compiled rules. It is safe for concurrent use.
type Engine struct {
	rules []rule
	now   func() time.Time
}

// New compiles the named expressions. Rules with an empty expression are
// skipped; any compile error is returned.
func New(expressions map[string]string, opts ...Option) (*Engine, error) {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	env, err := cel.NewEnv(
		cel.Variable("item_type", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("source_url", cel.StringType),
		cel.Variable("organizer", cel.StringType),
		cel.Variable("submitted_by", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("has_price", cel.BoolType),
		cel.Variable("has_occurrence", cel.BoolType),
		cel.Variable("occurrence_age_hours", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrCompile, err)
	}

	names := make([]string, 0, len(expressions))
	for name, expr := range expressions {
		if expr != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		ast, issues := env.Compile(expressions[name])
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, issues.Err())
		}
		if !cel.BoolType.IsAssignableType(ast.OutputType()) {
			return nil, fmt.Errorf("%w: %s: must evaluate to bool, got %s", ErrCompile, name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
		}
		e.rules = append(e.rules, rule{name: name, program: prg})
	}
	return e, nil
}

// Names returns the loaded rule names in evaluation order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.name
	}
	return out
}

// Evaluate returns the flags raised by item.
func (e *Engine) Evaluate(ctx context.Context, item model.CandidateItem) []string {
	vars := activation(item, e.now())
	var flags []string
	for _, r := range e.rules {
		out, _, err := r.program.ContextEval(ctx, vars)
		if err != nil {
			flags = append(flags, ErrorFlagPrefix+r.name)
			continue
		}
		hit, ok := out.Value().(bool)
		if !ok {
			flags = append(flags, ErrorFlagPrefix+r.name)
			continue
		}
		if hit {
			flags = append(flags, r.name)
		}
	}
	for _, f := range flags {
		metrics.RecordRuleHit(f)
	}
	return flags
}

// Apply returns result with the item's rule flags merged in.
func (e *Engine) Apply(ctx context.Context, item model.CandidateItem, result model.ModerationResult) model.ModerationResult {
	return result.WithFlags(e.Evaluate(ctx, item)...)
}

func activation(item model.CandidateItem, now time.Time) map[string]any {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	vars := map[string]any{
		"item_type":            string(item.Type),
		"title":                item.Title,
		"description":          item.Description,
		"location":             item.Location,
		"source_url":           item.SourceURL,
		"organizer":            item.OrganizerName,
		"submitted_by":         item.SubmittedBy,
		"tags":                 tags,
		"price":                0.0,
		"has_price":            item.Price != nil,
		"has_occurrence":       item.OccurrenceDate != nil,
		"occurrence_age_hours": 0.0,
	}
	if item.Price != nil {
		vars["price"] = *item.Price
	}
	if item.OccurrenceDate != nil {
		vars["occurrence_age_hours"] = now.Sub(*item.OccurrenceDate).Hours()
	}
	return vars
}
