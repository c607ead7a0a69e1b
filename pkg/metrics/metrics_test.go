package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.ticks.WithLabelValues("event").Inc()

			Convey("Then collectors should be registered under the namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_sub_loop_ticks_total")
			})
		})

		Convey("When creating twice on separate registries", func() {
			So(func() {
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording loop ticks", func() {
			before := testutil.ToFloat64(globalManager.ticks.WithLabelValues("standings"))
			RecordTick("standings", 12)
			RecordTickError("standings", "transport")

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.ticks.WithLabelValues("standings")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.tickErrors.WithLabelValues("standings", "transport")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating dropped laps", func() {
			UpdateLapsDropped(map[string]int{"cuts": 3, "track": 1})
			UpdateLapsDropped(map[string]int{"cuts": 2})

			Convey("Then only the latest aggregation should be reported", func() {
				So(testutil.CollectAndCount(globalManager.lapsDropped), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.lapsDropped.WithLabelValues("cuts")), ShouldEqual, 2)
			})
		})

		Convey("When the active event changes", func() {
			UpdateActiveEvent("season1#event1")
			UpdateActiveEvent("season1#event2")

			Convey("Then only the latest event should be reported", func() {
				So(testutil.CollectAndCount(globalManager.activeEvent), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.activeEvent.WithLabelValues("season1#event2")), ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordResultFile("processed")
				RecordLapsIngested(5)
				RecordLapsDuplicate(2)
				UpdateDedupeSize(7)
				UpdateIngestQueueSize(3)
				RecordIngestQueueRejected("queue_full")
				RecordFileDecode(2)
				RecordArtifactSave("leaderboard", "written")
				UpdateLeaderboardDrivers(4)
				UpdateStandingsDrivers(9)
				RecordPublish("leaderboard", "edited")
				RecordChannelRequest("send", "200", 35)
				UpdateBreakerState("discord", 0)
				RecordBreakerTransition("discord", "closed", "open")
				RecordHTTPRequest("/stats", "GET", "200", 1)
				RecordHTTPError("/leaderboard", "GET", "not_found")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
