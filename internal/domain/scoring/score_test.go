package scoring_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/trustgate/internal/domain/model"
	"github.com/okian/trustgate/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestComposite(t *testing.T) {
	Convey("Given the default weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("When an entry has no ratings", func() {
			s := model.ScoreSet{Source: 0.8, Recency: 0.6, Verification: 1.0}

			Convey("Then the community weight is excluded and the rest renormalised", func() {
				want := (0.3*0.8 + 0.2*0.6 + 0.3*1.0) / (0.3 + 0.2 + 0.3)
				So(scoring.Composite(s, w), ShouldAlmostEqual, want, 1e-12)
				So(scoring.Composite(s, w), ShouldAlmostEqual, 0.825, 1e-12)
			})
		})

		Convey("When all four sub-scores are present", func() {
			s := model.ScoreSet{Source: 0.8, Recency: 0.6, Verification: 1.0, Community: ptr(0.5)}

			Convey("Then it is the plain weighted sum", func() {
				So(scoring.Composite(s, w), ShouldAlmostEqual, 0.24+0.12+0.3+0.1, 1e-12)
			})
		})

		Convey("When sub-scores are out of range", func() {
			s := model.ScoreSet{Source: 3, Recency: -1, Verification: math.NaN(), Community: ptr(9)}

			Convey("Then the composite stays within [0,1]", func() {
				v := scoring.Composite(s, w)
				So(v, ShouldBeBetweenOrEqual, 0, 1)
			})
		})

		Convey("When all weights are zero", func() {
			So(scoring.Composite(model.ScoreSet{Source: 1}, scoring.Weights{}), ShouldEqual, 0)
		})
	})
}

func TestSubScores(t *testing.T) {
	Convey("Given the recency decay", t, func() {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		halfLife := 48 * time.Hour

		Convey("Then it starts at 1, halves every half-life and never drops below the floor", func() {
			So(scoring.RecencyScore(base, base, halfLife, 0.1), ShouldEqual, 1)
			So(scoring.RecencyScore(base, base.Add(halfLife), halfLife, 0.1), ShouldAlmostEqual, 0.5, 1e-12)
			So(scoring.RecencyScore(base, base.Add(2*halfLife), halfLife, 0.1), ShouldAlmostEqual, 0.25, 1e-12)
			So(scoring.RecencyScore(base, base.Add(100*halfLife), halfLife, 0.1), ShouldEqual, 0.1)
		})

		Convey("Then it is stable within the same hour of age", func() {
			a := scoring.RecencyScore(base, base.Add(5*time.Hour+time.Minute), halfLife, 0.1)
			b := scoring.RecencyScore(base, base.Add(5*time.Hour+59*time.Minute), halfLife, 0.1)
			So(a, ShouldEqual, b)
		})

		Convey("Then a verification in the future counts as fresh", func() {
			So(scoring.RecencyScore(base.Add(time.Hour), base, halfLife, 0.1), ShouldEqual, 1)
		})
	})

	Convey("Given verification states", t, func() {
		So(scoring.VerificationScore(model.Unverified), ShouldEqual, 0.3)
		So(scoring.VerificationScore(model.CommunityFlagged), ShouldEqual, 0.1)
		So(scoring.VerificationScore(model.CuratorVerified), ShouldEqual, 1.0)
		So(scoring.VerificationScore(""), ShouldEqual, 0.3)
	})

	Convey("Given community ratings", t, func() {
		So(scoring.CommunityScore(nil), ShouldBeNil)
		So(*scoring.CommunityScore([]int{1}), ShouldEqual, 0)
		So(*scoring.CommunityScore([]int{5, 5}), ShouldEqual, 1)
		So(*scoring.CommunityScore([]int{4, 2}), ShouldAlmostEqual, 0.5, 1e-12)
	})

	Convey("Given score sets before and after", t, func() {
		before := model.ScoreSet{Source: 0.5, Recency: 1, Verification: 0.3}
		after := model.ScoreSet{Source: 0.5, Recency: 0.9, Verification: 0.3, Community: ptr(0.75)}

		So(scoring.Changed(before, after), ShouldResemble, []string{"recency", "community"})
		So(scoring.Changed(after, after), ShouldBeEmpty)
	})
}

func TestReputation(t *testing.T) {
	Convey("Given configured reputations", t, func() {
		rep := scoring.NewReputation(
			map[string]float64{"WWW.City.gov": 0.95, "blog.example.org": 0.2},
			map[string]float64{"partner": 0.7, "automation": 0.5},
			0.4,
		)
		item := func(src, by string) model.CandidateItem {
			return model.CandidateItem{SourceURL: src, SubmittedBy: by}
		}

		Convey("Then a known host wins over the submitter", func() {
			So(rep.Score(item("https://www.city.gov/events?id=1", "automation:x")), ShouldEqual, 0.95)
		})

		Convey("Then subdomains inherit their parent's reputation", func() {
			So(rep.Score(item("https://parks.city.gov/", "automation:x")), ShouldEqual, 0.95)
		})

		Convey("Then the most specific host wins", func() {
			So(rep.Score(item("http://blog.example.org:8080/post", "partner:x")), ShouldEqual, 0.2)
		})

		Convey("Then an unknown host falls back to the submitter kind", func() {
			So(rep.Score(item("https://unknown.net", "Partner:museum")), ShouldEqual, 0.7)
		})

		Convey("Then unknown host and submitter use the fallback", func() {
			So(rep.Score(item("", "someone")), ShouldEqual, 0.4)
		})

		Convey("Then hosts are canonicalised", func() {
			So(scoring.CanonicalHost("HTTPS://WWW.Example.ORG:443/a/../b"), ShouldEqual, "example.org")
			So(scoring.CanonicalHost("not a url"), ShouldEqual, "")
		})
	})
}
