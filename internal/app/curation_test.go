package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/trustgate/internal/adapters/repository"
	service "github.com/okian/trustgate/internal/app"
	"github.com/okian/trustgate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolveReview(t *testing.T) {
	Convey("Given a pending review", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		f.eval.answers["Maybe"] = approve(0.75)
		rep, err := f.svc.Ingest(ctx, submissions(item("Maybe")))
		So(err, ShouldBeNil)
		reviewID := rep.Results[0].ReviewID
		So(reviewID, ShouldNotBeEmpty)

		Convey("When a curator approves it", func() {
			r, err := f.svc.ResolveReview(ctx, reviewID, service.DecisionApprove, "sam")

			Convey("Then it becomes a curator-verified entry", func() {
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, model.ReviewApproved)
				So(r.Curator, ShouldEqual, "sam")
				e, err := f.svc.GetEntry(ctx, r.EntryID)
				So(err, ShouldBeNil)
				So(e.VerificationState, ShouldEqual, model.CuratorVerified)
				So(e.VerificationScore, ShouldEqual, 1.0)

				trail, _ := f.svc.AuditTrail(ctx, r.EntryID, time.Time{}, time.Time{}, 0)
				ops := []model.OperationType{}
				for _, a := range trail {
					ops = append(ops, a.OperationType)
				}
				So(ops, ShouldResemble, []model.OperationType{model.OpEntryCreated, model.OpReviewResolve})
			})

			Convey("And it is resolved again", func() {
				_, err := f.svc.ResolveReview(ctx, reviewID, service.DecisionReject, "sam")

				Convey("Then it conflicts", func() {
					So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				})
			})
		})

		Convey("When a curator rejects it", func() {
			r, err := f.svc.ResolveReview(ctx, reviewID, service.DecisionReject, "sam")

			Convey("Then no entry is created and the review is closed", func() {
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, model.ReviewRejected)
				So(r.EntryID, ShouldBeEmpty)
				n, _ := f.store.CountEntries(ctx)
				So(n, ShouldEqual, 0)
				pending, _ := f.svc.Reviews(ctx, "", 0)
				So(pending, ShouldBeEmpty)
				rejected, _ := f.svc.Reviews(ctx, model.ReviewRejected, 0)
				So(rejected, ShouldHaveLength, 1)
			})
		})

		Convey("When the audit write fails during approval", func() {
			f.store.failAudit.Store(true)
			_, err := f.svc.ResolveReview(ctx, reviewID, service.DecisionApprove, "sam")
			f.store.failAudit.Store(false)

			Convey("Then the review stays pending and no entry exists", func() {
				So(err, ShouldNotBeNil)
				n, _ := f.store.CountEntries(ctx)
				So(n, ShouldEqual, 0)
				r, _ := f.store.GetReview(ctx, reviewID)
				So(r.Status, ShouldEqual, model.ReviewPending)
			})
		})

		Convey("When the request is incomplete", func() {
			_, errCurator := f.svc.ResolveReview(ctx, reviewID, service.DecisionApprove, " ")
			_, errDecision := f.svc.ResolveReview(ctx, reviewID, "maybe", "sam")
			_, errMissing := f.svc.ResolveReview(ctx, "nope", service.DecisionApprove, "sam")
			_, errStatus := f.svc.Reviews(ctx, "open", 0)

			So(errors.Is(errCurator, model.ErrValidation), ShouldBeTrue)
			So(errors.Is(errDecision, model.ErrValidation), ShouldBeTrue)
			So(errors.Is(errMissing, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(errStatus, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestVerificationAndArchive(t *testing.T) {
	Convey("Given a published entry", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		id := f.seedEntry(t, "Tool Library")
		before, _ := f.svc.GetEntry(ctx, id)

		Convey("When a curator flags it", func() {
			score, err := f.svc.SetVerification(ctx, id, model.CommunityFlagged, "sam")

			Convey("Then its verification score drops and both steps are audited", func() {
				So(err, ShouldBeNil)
				So(score, ShouldBeLessThan, before.TrustScore)
				e, _ := f.svc.GetEntry(ctx, id)
				So(e.VerificationScore, ShouldEqual, 0.1)

				trail, _ := f.svc.AuditTrail(ctx, id, time.Time{}, time.Time{}, 0)
				So(trail[len(trail)-2].OperationType, ShouldEqual, model.OpVerification)
				So(trail[len(trail)-1].OperationType, ShouldEqual, model.OpRecalculate)
				So(trail[len(trail)-1].ActorType, ShouldEqual, model.ActorCurator)
			})
		})

		Convey("When the state is unknown", func() {
			_, err := f.svc.SetVerification(ctx, id, "trusted", "sam")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When it is archived", func() {
			So(f.svc.Archive(ctx, id, "sam"), ShouldBeNil)

			Convey("Then it cannot be archived or verified again and sweeps skip it", func() {
				So(errors.Is(f.svc.Archive(ctx, id, "sam"), repository.ErrConflict), ShouldBeTrue)
				_, err := f.svc.SetVerification(ctx, id, model.CuratorVerified, "sam")
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				n, err := f.svc.Sweep(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
				_, err = f.svc.GetEntry(ctx, id)
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service with entries", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		a := f.seedEntry(t, "Seed Swap")
		b := f.seedEntry(t, "Book Club")
		So(f.svc.Start(ctx), ShouldBeNil)
		So(f.svc.Start(ctx), ShouldBeNil)

		Convey("When a sweep runs and the service stops", func() {
			n, err := f.svc.Sweep(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then every entry was recalculated by the workers", func() {
				for _, id := range []string{a, b} {
					hist, _ := f.svc.History(ctx, id, 0)
					So(hist, ShouldHaveLength, 2)
					So(hist[0].Reason, ShouldEqual, "sweep")
				}
			})

			Convey("Then stats reflect the state", func() {
				stats, err := f.svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(stats["started"], ShouldEqual, false)
				So(stats["totalEntries"], ShouldEqual, int64(2))
				So(stats["pendingReviews"], ShouldEqual, int64(0))
				So(stats["processedJobs"], ShouldEqual, int64(2))
			})
		})
	})

	Convey("Given missing dependencies", t, func() {
		_, err := service.New(service.Deps{})
		So(err, ShouldNotBeNil)
	})
}
