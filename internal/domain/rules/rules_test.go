package rules_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/trustgate/internal/config"
	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/rules"
	"github.com/okian/trustgate/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRules(t *testing.T) {
	Convey("Given the default safety rules and a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
		eng, err := rules.New(config.New().SafetyRules, rules.WithClock(func() time.Time { return now }))
		So(err, ShouldBeNil)
		So(eng.Names(), ShouldResemble, []string{"excessive-price", "missing-source-url", "stale-event"})

		base := model.CandidateItem{
			Type:        model.ItemEvent,
			Title:       "Community garden day",
			Description: "Planting",
			SourceURL:   "https://example.org/garden",
			SubmittedBy: "manual:alex",
		}

		Convey("When an item breaks no rule", func() {
			future := now.Add(48 * time.Hour)
			base.OccurrenceDate = &future

			Convey("Then no flags are raised", func() {
				So(eng.Evaluate(ctx, base), ShouldBeEmpty)
			})
		})

		Convey("When the source URL is missing", func() {
			base.SourceURL = ""

			Convey("Then missing-source-url is raised", func() {
				So(eng.Evaluate(ctx, base), ShouldResemble, []string{"missing-source-url"})
			})
		})

		Convey("When an event happened more than a day ago", func() {
			past := now.Add(-25 * time.Hour)
			base.OccurrenceDate = &past

			Convey("Then stale-event is raised", func() {
				So(eng.Evaluate(ctx, base), ShouldResemble, []string{"stale-event"})
			})

			Convey("But news with the same date is not stale", func() {
				base.Type = model.ItemNews
				So(eng.Evaluate(ctx, base), ShouldBeEmpty)
			})
		})

		Convey("When the price is excessive", func() {
			p := 1500.0
			base.Price = &p

			Convey("Then excessive-price is raised", func() {
				So(eng.Evaluate(ctx, base), ShouldResemble, []string{"excessive-price"})
			})
		})

		Convey("When rule flags are applied to a clean result", func() {
			base.SourceURL = ""
			clean := model.ModerationResult{Confidence: 0.97, Recommendation: model.RecommendAutoApprove}
			out := eng.Apply(ctx, base, clean)

			Convey("Then the result carries the flag and the input is untouched", func() {
				So(out.Flags, ShouldResemble, []string{"missing-source-url"})
				So(clean.Flags, ShouldBeEmpty)
			})
		})
	})

	Convey("Given custom rules", t, func() {
		ctx := context.Background()

		Convey("When a rule uses tags", func() {
			eng, err := rules.New(map[string]string{"adult": `"adult" in tags`})
			So(err, ShouldBeNil)

			So(eng.Evaluate(ctx, model.CandidateItem{Tags: []string{"music", "adult"}}), ShouldResemble, []string{"adult"})
			So(eng.Evaluate(ctx, model.CandidateItem{}), ShouldBeEmpty)
		})

		Convey("When a rule fails at evaluation time", func() {
			eng, err := rules.New(map[string]string{"first-tag": `tags[0] == "x"`})
			So(err, ShouldBeNil)

			Convey("Then a rule-error flag is raised", func() {
				So(eng.Evaluate(ctx, model.CandidateItem{}), ShouldResemble, []string{"rule-error:first-tag"})
			})
		})

		Convey("When a rule does not compile", func() {
			_, err := rules.New(map[string]string{"broken": `title ==`})

			Convey("Then construction fails", func() {
				So(errors.Is(err, rules.ErrCompile), ShouldBeTrue)
			})
		})

		Convey("When a rule is not boolean", func() {
			_, err := rules.New(map[string]string{"len": `size(title)`})

			Convey("Then construction fails", func() {
				So(errors.Is(err, rules.ErrCompile), ShouldBeTrue)
			})
		})

		Convey("When a rule reads only the price", func() {
			eng, err := rules.New(map[string]string{"cheap": "has_price && price > 1.0"})
			So(err, ShouldBeNil)
			p := 2.5

			Convey("Then it compiles and fires", func() {
				So(eng.Evaluate(ctx, model.CandidateItem{Price: &p}), ShouldResemble, []string{"cheap"})
			})
		})

		Convey("When a rule matches on the item type", func() {
			eng, err := rules.New(map[string]string{"no-resources": `item_type == "resource"`})
			So(err, ShouldBeNil)

			So(eng.Evaluate(ctx, model.CandidateItem{Type: model.ItemResource}), ShouldResemble, []string{"no-resources"})
			So(eng.Evaluate(ctx, model.CandidateItem{Type: model.ItemEvent}), ShouldBeEmpty)
		})

		Convey("When a rule fires", func() {
			eng, err := rules.New(map[string]string{"counted-rule": `title == "x"`})
			So(err, ShouldBeNil)
			before := ruleHits(t, "counted-rule")
			eng.Evaluate(ctx, model.CandidateItem{Title: "x"})
			eng.Evaluate(ctx, model.CandidateItem{Title: "y"})

			Convey("Then the hit is counted once", func() {
				So(ruleHits(t, "counted-rule"), ShouldEqual, before+1)
			})
		})

		Convey("When a rule expression is empty", func() {
			eng, err := rules.New(map[string]string{"off": ""})

			Convey("Then it is skipped", func() {
				So(err, ShouldBeNil)
				So(eng.Names(), ShouldBeEmpty)
			})
		})
	})
}

func ruleHits(t *testing.T, rule string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "safety_rule_hits_total") {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "rule" && l.GetValue() == rule {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
