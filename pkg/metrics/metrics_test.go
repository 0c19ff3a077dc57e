package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("NewManager registers its collectors there", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
			)
			So(m, ShouldNotBeNil)
			So(m.namespace, ShouldEqual, "test")
			So(m.subsystem, ShouldEqual, "unit")

			m.saveConflicts.WithLabelValues("teams").Inc()
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			var found bool
			for _, f := range families {
				if f.GetName() == "test_unit_save_conflicts_total" {
					found = true
					So(f.GetMetric()[0].GetLabel(), ShouldHaveLength, 2)
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("Empty options keep the defaults", func() {
			m := NewManager(WithPrometheusRegistry(registry), WithNamespace(""), WithHistogramBuckets(nil))
			So(m.namespace, ShouldEqual, "ladder")
			So(m.histogramBuckets, ShouldNotBeEmpty)
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Store helpers count by labels", func() {
			before := testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("memory", "set", OutcomeConflict))
			RecordStoreOperation("memory", "set", OutcomeConflict, 3*time.Millisecond)
			after := testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("memory", "set", OutcomeConflict))
			So(after-before, ShouldEqual, 1)
		})

		Convey("Conflicts and retries are counted", func() {
			before := testutil.ToFloat64(globalManager.saveConflicts.WithLabelValues("bonuses"))
			RecordSaveConflict("bonuses")
			So(testutil.ToFloat64(globalManager.saveConflicts.WithLabelValues("bonuses"))-before, ShouldEqual, 1)

			beforeRetry := testutil.ToFloat64(globalManager.transactRetries.WithLabelValues("redis"))
			RecordTransactRetry("redis")
			So(testutil.ToFloat64(globalManager.transactRetries.WithLabelValues("redis"))-beforeRetry, ShouldEqual, 1)
		})

		Convey("Leaderboard builds update the team gauge", func() {
			RecordLeaderboardBuild(12, 5*time.Millisecond)
			So(testutil.ToFloat64(globalManager.leaderboardTeams), ShouldEqual, 12)
		})

		Convey("Gauges take the last value", func() {
			UpdateLiveClients(3)
			UpdateLiveClients(1)
			So(testutil.ToFloat64(globalManager.liveClients), ShouldEqual, 1)

			UpdateSystemGoroutineCount(42)
			So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 42)
		})

		Convey("The remaining helpers do not panic", func() {
			So(func() {
				RecordChallengeTransition("accept", OutcomeOK)
				RecordActivityPublished()
				RecordActivityDropped("publish")
				RecordActivityPersisted()
				RecordActivityDuplicate()
				RecordLiveBroadcast()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1.5)
				RecordHTTPError("/api/v1/matches", "POST", "validation")
				UpdateSystemMemoryUsage(1 << 20)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("GetRegistry returns the private registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
