package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/trustgate/internal/client"
	"github.com/okian/trustgate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// flakyIngest answers /ingest with status for the first failures calls, then
// with a report counting every item as auto-approved.
func flakyIngest(failures int32, status int, attempts *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if r.Header.Get("X-Ingest-Secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized"}`))
			return
		}
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"code":"unavailable","message":"try later"}`))
			return
		}
		var req struct {
			Events []client.Item `json:"events"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		rep := client.IngestReport{Success: true, Stats: client.IngestStats{Total: len(req.Events), AutoApproved: len(req.Events)}}
		for _, it := range req.Events {
			rep.Results = append(rep.Results, client.ItemResult{Title: it.Title, Status: "auto-approved", Success: true})
		}
		_ = json.NewEncoder(w).Encode(rep)
	}
}

func TestNew(t *testing.T) {
	Convey("Given base URLs", t, func() {
		_, err := client.New("localhost:9080")
		So(errors.Is(err, client.ErrRequest), ShouldBeTrue)

		c, err := client.New("http://localhost:9080/")
		So(err, ShouldBeNil)
		So(c, ShouldNotBeNil)
	})
}

func TestIngestRetry(t *testing.T) {
	Convey("Given a service that is briefly unavailable", t, func() {
		var attempts atomic.Int32
		srv := httptest.NewServer(flakyIngest(2, http.StatusServiceUnavailable, &attempts))
		defer srv.Close()
		items := []client.Item{{Type: "event", Title: "A", Description: "a", SubmittedBy: "manual:x"}}

		Convey("When a batch is submitted with retries", func() {
			c, _ := client.New(srv.URL, client.WithIngestSecret("s3cret"), client.WithRetry(time.Millisecond, 4))
			rep, err := c.Ingest(context.Background(), items)

			Convey("Then the whole batch is retried until it lands", func() {
				So(err, ShouldBeNil)
				So(attempts.Load(), ShouldEqual, 3)
				So(rep.Success, ShouldBeTrue)
				So(rep.Stats.AutoApproved, ShouldEqual, 1)
				So(rep.Results[0].Title, ShouldEqual, "A")
			})
		})

		Convey("When the retries run out", func() {
			c, _ := client.New(srv.URL, client.WithIngestSecret("s3cret"), client.WithRetry(time.Millisecond, 1))
			_, err := c.Ingest(context.Background(), items)

			Convey("Then the last answer is returned", func() {
				var apiErr *client.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusServiceUnavailable)
				So(apiErr.Temporary(), ShouldBeTrue)
				So(attempts.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the secret is wrong", func() {
			c, _ := client.New(srv.URL, client.WithIngestSecret("nope"), client.WithRetry(time.Millisecond, 4))
			_, err := c.Ingest(context.Background(), items)

			Convey("Then it fails at once", func() {
				So(client.IsCode(err, "unauthorized"), ShouldBeTrue)
				So(attempts.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c, _ := client.New(srv.URL, client.WithIngestSecret("s3cret"))
			_, err := c.Ingest(ctx, items)

			Convey("Then nothing is sent", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(attempts.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestRatingCalls(t *testing.T) {
	Convey("Given a ratings endpoint", t, func() {
		var gotRater, gotProxy, gotMethod string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotRater, gotProxy, gotMethod = r.Header.Get("X-Rater-Id"), r.Header.Get("X-Rater-Proxy-Secret"), r.Method
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			if r.Method == http.MethodPost && gotBody["rating"] == float64(1) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"duplicate_rating","message":"duplicate rating"}`))
				return
			}
			_, _ = w.Write([]byte(`{"entryId":"e1","trustScore":0.71}`))
		}))
		defer srv.Close()
		c, _ := client.New(srv.URL, client.WithRaterID("device-9"), client.WithRaterProxySecret("proxy-s3cret"))
		ctx := context.Background()

		Convey("When rating", func() {
			s, err := c.Rate(ctx, "e1", 4, "solid")

			Convey("Then the rater id and body are sent", func() {
				So(err, ShouldBeNil)
				So(s.TrustScore, ShouldAlmostEqual, 0.71)
				So(gotRater, ShouldEqual, "device-9")
				So(gotProxy, ShouldEqual, "proxy-s3cret")
				So(gotMethod, ShouldEqual, http.MethodPost)
				So(gotBody["feedbackText"], ShouldEqual, "solid")
			})
		})

		Convey("When the service reports a duplicate", func() {
			_, err := c.Rate(ctx, "e1", 1, "")

			Convey("Then the code is exposed", func() {
				So(client.IsCode(err, "duplicate_rating"), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "409")
			})
		})

		Convey("When updating and deleting", func() {
			_, err := c.UpdateRating(ctx, "e1", 3, "")
			So(err, ShouldBeNil)
			So(gotMethod, ShouldEqual, http.MethodPut)
			s, err := c.DeleteRatings(ctx, "e1")
			So(err, ShouldBeNil)
			So(s.TrustScore, ShouldAlmostEqual, 0.71)
			So(gotMethod, ShouldEqual, http.MethodDelete)
		})
	})
}

func TestGenerateItems(t *testing.T) {
	Convey("Given the synthetic item generator", t, func() {
		now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

		Convey("Without duplicates every title is distinct", func() {
			items := client.GenerateItems(50, 0, now)
			seen := map[string]bool{}
			for _, it := range items {
				So(seen[it.Title], ShouldBeFalse)
				seen[it.Title] = true
				So(it.Description, ShouldNotBeEmpty)
				So(it.SubmittedBy, ShouldContainSubstring, ":")
			}
			So(items, ShouldHaveLength, 50)
		})

		Convey("With only duplicates every item repeats the first", func() {
			items := client.GenerateItems(10, 1, now)
			So(items, ShouldHaveLength, 10)
			for _, it := range items[1:] {
				So(strings.TrimSpace(it.Title), ShouldEqual, items[0].Title)
				So(it.Location, ShouldEqual, items[0].Location)
				So(it.OccurrenceDate, ShouldEqual, items[0].OccurrenceDate)
			}
		})
	})
}

func TestRunLoad(t *testing.T) {
	Convey("Given a healthy service", t, func() {
		var attempts atomic.Int32
		srv := httptest.NewServer(flakyIngest(0, 0, &attempts))
		defer srv.Close()
		c, _ := client.New(srv.URL, client.WithIngestSecret("s3cret"))

		Convey("When 25 items go out in batches of 10", func() {
			stats, err := client.RunLoad(context.Background(), c, client.LoadConfig{Items: 25, BatchSize: 10, Workers: 3})

			Convey("Then three batches carry every item", func() {
				So(err, ShouldBeNil)
				So(stats.Batches, ShouldEqual, 3)
				So(stats.FailedBatches, ShouldEqual, 0)
				So(stats.Items.Total, ShouldEqual, 25)
				So(attempts.Load(), ShouldEqual, 3)
			})
		})

		Convey("When the configuration is empty", func() {
			_, err := client.RunLoad(context.Background(), c, client.LoadConfig{})
			So(errors.Is(err, client.ErrRequest), ShouldBeTrue)
		})
	})
}
