package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applied to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("ns"),
				WithSubsystem("sub"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the manager reflects them", func() {
				So(m.namespace, ShouldEqual, "ns")
				So(m.subsystem, ShouldEqual, "sub")
				So(m.metricPrefix, ShouldEqual, "pre")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.customLabels["env"], ShouldEqual, "test")
			})

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				m.itemsReceived.Add(1)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "ns_sub_pre_items_received_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When given empty values", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "trustgate")
				So(m.subsystem, ShouldEqual, "triage")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestTriageRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording dispositions", func() {
			before := testutil.ToFloat64(globalManager.dispositions.WithLabelValues("review-deep"))
			RecordDisposition("review-deep")
			RecordDisposition("review-deep")

			Convey("Then the labelled counter grows", func() {
				So(testutil.ToFloat64(globalManager.dispositions.WithLabelValues("review-deep")), ShouldEqual, before+2)
			})
		})

		Convey("When recording ingestion counts", func() {
			before := testutil.ToFloat64(globalManager.itemsReceived)
			RecordItemsReceived(5)
			dup := testutil.ToFloat64(globalManager.itemsDuplicate)
			RecordItemDuplicate()

			Convey("Then counters reflect the batch", func() {
				So(testutil.ToFloat64(globalManager.itemsReceived), ShouldEqual, before+5)
				So(testutil.ToFloat64(globalManager.itemsDuplicate), ShouldEqual, dup+1)
			})
		})

		Convey("When recording reasoning fallbacks", func() {
			before := testutil.ToFloat64(globalManager.reasoningFallbacks.WithLabelValues("timeout"))
			RecordReasoningFallback("timeout")

			Convey("Then the cause is counted", func() {
				So(testutil.ToFloat64(globalManager.reasoningFallbacks.WithLabelValues("timeout")), ShouldEqual, before+1)
			})
		})

		Convey("When recording a recalculation", func() {
			before := testutil.ToFloat64(globalManager.recalculations.WithLabelValues("rating"))
			RecordRecalculation("rating", 0.73)

			Convey("Then the trigger is counted", func() {
				So(testutil.ToFloat64(globalManager.recalculations.WithLabelValues("rating")), ShouldEqual, before+1)
			})
		})

		Convey("When setting gauges", func() {
			UpdateQueueSize(7)
			UpdateTotalEntries(42)
			UpdateDedupeCacheSize(3)

			Convey("Then the gauges hold the values", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.totalEntries), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.dedupeCacheSize), ShouldEqual, 3)
			})
		})
	})
}

func TestRecordersDoNotPanic(t *testing.T) {
	Convey("Given every recorder", t, func() {
		So(func() {
			RecordItemMalformed()
			RecordItemFailure("store")
			RecordBatchLatency(120)
			RecordReasoningLatency(900)
			RecordReasoningRequest("200")
			RecordRuleHit("stale-event")
			RecordRecalculationError()
			RecordRecalculationLatency(4)
			RecordRating("accepted")
			RecordAuditWrite("recalculate")
			RecordAuditWriteError()
			RecordHTTPRequest("/ingest", "POST", "200")
			RecordHTTPRequestDuration("/ingest", "POST", "200", 12)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(1)
			UpdateWorkerCount(4)
			UpdateWorkerActiveCount(4)
			UpdateWorkerMessagesPerSecond(10)
			RecordWorkerProcessingLatency(3)
			RecordWorkerError()
			RecordErrorByComponent("api", "validation")
			RecordErrorByType("validation", "low")
			RecordErrorByEndpoint("/ingest", "POST", "validation")
			RecordErrorLatency("api", "validation", 2)
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.4)
		}, ShouldNotPanic)
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordItemsReceived(1)
		families, err := GetRegistry().Gather()

		Convey("Then it exposes only trustgate metrics", func() {
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "trustgate_triage_"), ShouldBeTrue)
			}
		})
	})
}
