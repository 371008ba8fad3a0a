package service_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/okian/trustgate/internal/adapters/repository"
	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIngest(t *testing.T) {
	Convey("Given a service with a stub evaluator", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		f.eval.answers["Quick look"] = approve(0.80)
		f.eval.answers["Flagged"] = approve(0.99).WithFlags("spam")
		f.eval.answers["Unreachable"] = model.Fallback()

		noDescription := item("No description")
		noDescription.Description = ""
		noTitle := item("")

		batch := submissions(
			item("Garden Day"),
			item("Quick look"),
			item("Flagged"),
			item("Unreachable"),
			item("GARDEN  day!"),
			noTitle,
			noDescription,
		)
		batch = append(batch, service.Submission{Item: item("Bad date"), Err: fmt.Errorf("%w: occurrenceDate", model.ErrValidation)})

		Convey("When the batch is ingested", func() {
			rep, err := f.svc.Ingest(ctx, batch)
			So(err, ShouldBeNil)

			Convey("Then every item gets a result in submission order", func() {
				statuses := make([]string, len(rep.Results))
				for i, r := range rep.Results {
					statuses[i] = r.Status
				}
				So(statuses, ShouldResemble, []string{
					"auto-approved", "review-quick", "review-deep", "review-deep",
					service.StatusDuplicate, service.StatusMalformed, service.StatusInvalid, service.StatusInvalid,
				})
				So(rep.Results[4].Success, ShouldBeTrue)
				So(rep.Results[6].Success, ShouldBeFalse)
				So(rep.Results[6].Error, ShouldContainSubstring, "description")
			})

			Convey("Then the stats add up", func() {
				st := rep.Stats
				So(st.Total, ShouldEqual, 8)
				So(st.AutoApproved, ShouldEqual, 1)
				So(st.ReviewQuick, ShouldEqual, 1)
				So(st.ReviewDeep, ShouldEqual, 2)
				So(st.Duplicates, ShouldEqual, 1)
				So(st.Failed, ShouldEqual, 3)
				So(st.AutoApproved+st.ReviewQuick+st.ReviewDeep+st.Duplicates+st.Failed, ShouldEqual, st.Total)
			})

			Convey("Then the approved item is a scored, audited entry", func() {
				e, err := f.svc.GetEntry(ctx, rep.Results[0].EntryID)
				So(err, ShouldBeNil)
				So(e.VerificationState, ShouldEqual, model.Unverified)
				So(e.TrustScore, ShouldBeBetween, 0, 1)
				So(e.Fingerprint, ShouldNotBeEmpty)

				trail, _ := f.svc.AuditTrail(ctx, e.ID, fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 1), 0)
				So(trail, ShouldHaveLength, 1)
				So(trail[0].OperationType, ShouldEqual, model.OpTriage)

				hist, _ := f.svc.History(ctx, e.ID, 0)
				So(hist, ShouldHaveLength, 1)
				So(hist[0].Scores.Trust, ShouldEqual, e.TrustScore)
			})

			Convey("Then the others wait for a curator with their judgement", func() {
				pending, err := f.svc.Reviews(ctx, model.ReviewPending, 0)
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 3)
				for _, r := range pending {
					if r.Item.Title == "Unreachable" {
						So(r.Moderation.IsFallback(), ShouldBeTrue)
						So(r.Disposition, ShouldEqual, model.ReviewDeep)
					}
				}
			})

			Convey("Then no item is evaluated more than once", func() {
				So(f.eval.calls.Load(), ShouldEqual, 4)
			})

			Convey("And the same batch is submitted again", func() {
				again, err := f.svc.Ingest(ctx, batch)
				So(err, ShouldBeNil)

				Convey("Then every previously kept item is a duplicate", func() {
					So(again.Stats.Duplicates, ShouldEqual, 5)
					So(again.Stats.AutoApproved+again.Stats.ReviewQuick+again.Stats.ReviewDeep, ShouldEqual, 0)
					So(f.eval.calls.Load(), ShouldEqual, 4)
				})
			})
		})

		Convey("When a safety rule matches an otherwise confident item", func() {
			noSource := item("No source")
			noSource.SourceURL = ""
			rep, err := f.svc.Ingest(ctx, submissions(noSource))

			Convey("Then it is held for deep review with the rule's flag", func() {
				So(err, ShouldBeNil)
				So(rep.Results[0].Status, ShouldEqual, string(model.ReviewDeep))
				pending, _ := f.svc.Reviews(ctx, model.ReviewPending, 0)
				So(pending[0].Moderation.Flags, ShouldContain, "missing-source-url")
			})
		})

		Convey("When the batch is empty or too large", func() {
			_, errEmpty := f.svc.Ingest(ctx, nil)
			big := make([]service.Submission, 501)
			_, errBig := f.svc.Ingest(ctx, big)

			Convey("Then it is rejected as a whole", func() {
				So(errors.Is(errEmpty, service.ErrEmptyBatch), ShouldBeTrue)
				So(errors.Is(errBig, service.ErrBatchTooLarge), ShouldBeTrue)
				So(errors.Is(errBig, model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestIngestAuditFailure(t *testing.T) {
	Convey("Given a store whose audit writes fail", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		f.eval.answers["Held"] = approve(0.5)
		f.store.failAudit.Store(true)

		Convey("When items are ingested", func() {
			rep, err := f.svc.Ingest(ctx, submissions(item("Published"), item("Held")))

			Convey("Then both fail and nothing is persisted", func() {
				So(err, ShouldBeNil)
				So(rep.Stats.Failed, ShouldEqual, 2)
				So(rep.Results[0].EntryID, ShouldBeEmpty)
				n, _ := f.store.CountEntries(ctx)
				So(n, ShouldEqual, 0)
				reviews, _ := f.svc.Reviews(ctx, model.ReviewPending, 0)
				So(reviews, ShouldBeEmpty)
			})

			Convey("And after recovery the same items are accepted again", func() {
				f.store.failAudit.Store(false)
				again, err := f.svc.Ingest(ctx, submissions(item("Published"), item("Held")))

				So(err, ShouldBeNil)
				So(again.Stats.AutoApproved, ShouldEqual, 1)
				So(again.Stats.ReviewDeep, ShouldEqual, 1)
			})
		})
	})
}

func TestIngestCancelled(t *testing.T) {
	Convey("Given an evaluator that never answers", t, func() {
		f := newFixture(t)
		f.eval.block = true
		ctx, cancel := context.WithCancel(context.Background())

		Convey("When the caller goes away mid-batch", func() {
			done := make(chan service.IngestReport, 1)
			go func() {
				rep, _ := f.svc.Ingest(ctx, submissions(item("One"), item("Two")))
				done <- rep
			}()
			for f.eval.calls.Load() == 0 {
				runtime.Gosched()
			}
			cancel()
			rep := <-done

			Convey("Then the items fail and can be resubmitted", func() {
				So(rep.Stats.Failed, ShouldEqual, 2)
				So(f.cache.Size(), ShouldEqual, 0)

				f.eval.block = false
				again, err := f.svc.Ingest(context.Background(), submissions(item("One"), item("Two")))
				So(err, ShouldBeNil)
				So(again.Stats.AutoApproved, ShouldEqual, 2)
			})
		})
	})
}

func TestIngestPersistsNothingOnRepositoryError(t *testing.T) {
	Convey("Given an entry id that cannot be found", t, func() {
		f := newFixture(t)
		_, err := f.svc.GetEntry(context.Background(), "missing")

		Convey("Then ErrNotFound is returned", func() {
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
