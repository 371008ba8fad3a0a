package reasoning_test

import (
	"errors"
	"testing"

	"github.com/okian/trustgate/internal/adapters/reasoning"
	"github.com/okian/trustgate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const validAnswer = `{"confidence":0.93,"relevance":"high","quality":"medium","liberationScore":0.8,` +
	`"reasoning":"Free community event with clear details.","recommendation":"auto-approve","flags":[]}`

func TestParse(t *testing.T) {
	Convey("Given a well-formed answer", t, func() {
		r, err := reasoning.Parse(validAnswer)

		Convey("Then every field is carried over", func() {
			So(err, ShouldBeNil)
			So(r.Confidence, ShouldEqual, 0.93)
			So(r.Relevance, ShouldEqual, model.LevelHigh)
			So(r.Quality, ShouldEqual, model.LevelMedium)
			So(r.LiberationScore, ShouldEqual, 0.8)
			So(r.Recommendation, ShouldEqual, model.RecommendAutoApprove)
			So(r.Flags, ShouldBeEmpty)
			So(r.IsFallback(), ShouldBeFalse)
		})
	})

	Convey("Given an answer wrapped in a code fence", t, func() {
		r, err := reasoning.Parse("```json\n" + validAnswer + "\n```")

		Convey("Then it parses", func() {
			So(err, ShouldBeNil)
			So(r.Confidence, ShouldEqual, 0.93)
		})
	})

	Convey("Given an answer with repeated flags", t, func() {
		r, err := reasoning.Parse(`{"confidence":0.5,"relevance":"low","quality":"low","liberationScore":0,` +
			`"reasoning":"x","recommendation":"review","flags":["spam","spam","scam"]}`)

		Convey("Then flags are de-duplicated", func() {
			So(err, ShouldBeNil)
			So(r.Flags, ShouldResemble, []string{"spam", "scam"})
		})
	})

	Convey("Given flags padded with whitespace", t, func() {
		r, err := reasoning.Parse(`{"confidence":0.5,"relevance":"low","quality":"low","liberationScore":0,` +
			`"reasoning":"x","recommendation":"review","flags":[" spam ","spam","\tscam"]}`)

		Convey("Then the trimmed flags are kept", func() {
			So(err, ShouldBeNil)
			So(r.Flags, ShouldResemble, []string{"spam", "scam"})
		})
	})

	Convey("Given broken answers", t, func() {
		cases := map[string]string{
			"not json":          "I think this is fine.",
			"missing field":     `{"confidence":0.9,"relevance":"high","quality":"high","reasoning":"x","recommendation":"review","flags":[]}`,
			"unknown enum":      `{"confidence":0.9,"relevance":"huge","quality":"high","liberationScore":0.5,"reasoning":"x","recommendation":"review","flags":[]}`,
			"bad recommend":     `{"confidence":0.9,"relevance":"high","quality":"high","liberationScore":0.5,"reasoning":"x","recommendation":"publish","flags":[]}`,
			"confidence > 1":    `{"confidence":1.5,"relevance":"high","quality":"high","liberationScore":0.5,"reasoning":"x","recommendation":"review","flags":[]}`,
			"negative score":    `{"confidence":0.5,"relevance":"high","quality":"high","liberationScore":-0.1,"reasoning":"x","recommendation":"review","flags":[]}`,
			"unknown field":     `{"confidence":0.5,"relevance":"high","quality":"high","liberationScore":0.1,"reasoning":"x","recommendation":"review","flags":[],"extra":1}`,
			"wrong type":        `{"confidence":"high","relevance":"high","quality":"high","liberationScore":0.1,"reasoning":"x","recommendation":"review","flags":[]}`,
			"trailing object":   validAnswer + validAnswer,
			"empty flag":        `{"confidence":0.5,"relevance":"high","quality":"high","liberationScore":0.1,"reasoning":"x","recommendation":"review","flags":[" "]}`,
			"empty":             "",
		}
		for name, text := range cases {
			_, err := reasoning.Parse(text)
			So(errors.Is(err, reasoning.ErrMalformed), ShouldBeTrue)
			_ = name
		}
	})
}
