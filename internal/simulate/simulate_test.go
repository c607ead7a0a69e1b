package simulate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/domain/leaderboard"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/results"
	"github.com/okian/timeattack/internal/domain/types"
)

var event = model.Event{
	ID:    model.NewEventID(1, "event1"),
	Track: "monza",
	Cars:  []string{"bmw_m3", "audi_r8"},
}

func testConfig(dir string) *Config {
	return &Config{
		ResultsDir:    dir,
		Event:         event,
		Drivers:       8,
		Files:         3,
		LapsPerDriver: 5,
		Seed:          42,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded configuration", t, func() {
		cfg := testConfig("")

		Convey("When generating twice", func() {
			first, drivers := Generate(cfg)
			second, _ := Generate(cfg)

			Convey("Then the output should be identical", func() {
				So(first, ShouldResemble, second)
				So(len(drivers), ShouldEqual, 8)
				So(len(first), ShouldEqual, 3)
				So(len(first[0].Laps), ShouldEqual, 40)
			})

			Convey("Then every lap should be on the event track with a unique timestamp", func() {
				seen := map[int64]bool{}
				for _, f := range first {
					So(f.TrackName, ShouldEqual, "monza")
					for _, l := range f.Laps {
						So(seen[l.Timestamp], ShouldBeFalse)
						seen[l.Timestamp] = true
						So(l.LapTime, ShouldBeGreaterThan, 0)
					}
				}
			})
		})

		Convey("When the seed changes", func() {
			_, a := Generate(cfg)
			cfg.Seed = 7
			_, b := Generate(cfg)
			So(a[0].GUID, ShouldNotEqual, b[0].GUID)
		})
	})
}

func TestExpected(t *testing.T) {
	Convey("Given a file with illegal laps", t, func() {
		files := []results.File{{
			TrackName: "monza",
			Laps: []results.Lap{
				{DriverGUID: "g1", DriverName: "A", CarModel: "bmw_m3", LapTime: 90000, Timestamp: 1},
				{DriverGUID: "g1", DriverName: "A", CarModel: "bmw_m3", LapTime: 80000, Cuts: 2, Timestamp: 2},
				{DriverGUID: "g2", DriverName: "B", CarModel: wrongCar, LapTime: 70000, Timestamp: 3},
				{DriverGUID: "g2", DriverName: "B", CarModel: "audi_r8", LapTime: 95000, Timestamp: 4},
			},
		}, {
			TrackName: "spa",
			Laps:      []results.Lap{{DriverGUID: "g3", DriverName: "C", CarModel: "bmw_m3", LapTime: 60000, Timestamp: 5}},
		}}

		expected, legal := Expected(files, event)

		Convey("Then only legal laps should count", func() {
			So(legal, ShouldEqual, 2)
			So(expected, ShouldResemble, []Entry{
				{DriverGUID: "g1", Driver: "A", LapMS: 90000},
				{DriverGUID: "g2", Driver: "B", LapMS: 95000},
			})
		})
	})
}

func TestVerify(t *testing.T) {
	expected := []Entry{
		{DriverGUID: "g1", Driver: "A", LapMS: 90000},
		{DriverGUID: "g2", Driver: "B", LapMS: 95000},
	}

	Convey("Given a matching leaderboard with an extra driver", t, func() {
		board := model.Leaderboard{
			{DriverGUID: "g1", LapMS: 90000},
			{DriverGUID: "other", LapMS: 91000},
			{DriverGUID: "g2", LapMS: 95000},
		}
		matched, err := Verify(expected, board)
		So(err, ShouldBeNil)
		So(matched, ShouldEqual, 2)
	})

	Convey("Given a leaderboard missing a driver", t, func() {
		matched, err := Verify(expected, model.Leaderboard{{DriverGUID: "g1", LapMS: 90000}})
		So(errors.Is(err, ErrMissingDriver), ShouldBeTrue)
		So(matched, ShouldEqual, 1)
	})

	Convey("Given a leaderboard with a different lap", t, func() {
		_, err := Verify(expected, model.Leaderboard{{DriverGUID: "g1", LapMS: 90000}, {DriverGUID: "g2", LapMS: 96000}})
		So(errors.Is(err, ErrWrongLap), ShouldBeTrue)
	})

	Convey("Given an unsorted leaderboard", t, func() {
		_, err := Verify(expected, model.Leaderboard{{DriverGUID: "g2", LapMS: 95000}, {DriverGUID: "g1", LapMS: 90000}})
		So(errors.Is(err, ErrUnsorted), ShouldBeTrue)
	})
}

// fakeService serves the ops routes Run reads, aggregating whatever result
// files are in dir on every request.
func fakeService(dir string, healthy bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/event", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"event_id": event.ID.String()})
	})
	mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, _ *http.Request) {
		var laps []model.LapRecord
		names, _ := filepath.Glob(filepath.Join(dir, "*.json"))
		for _, name := range names {
			data, err := os.ReadFile(name)
			if err != nil {
				continue
			}
			f, err := results.Decode(data)
			if err != nil {
				continue
			}
			recs, _ := f.Records(event, time.Now())
			laps = append(laps, recs...)
		}
		lb, _ := leaderboard.Aggregate(event.ID, laps, event)
		_ = json.NewEncoder(w).Encode(types.LeaderboardView{EventID: event.ID.String(), Entries: lb})
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a service aggregating the results directory", t, func() {
		dir := t.TempDir()
		srv := fakeService(dir, true)
		defer srv.Close()

		cfg := testConfig(dir)
		cfg.BaseURL = srv.URL
		cfg.Wait = 5 * time.Second
		cfg.PollInterval = 10 * time.Millisecond

		Convey("When running the simulation", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every simulated driver should match", func() {
				So(err, ShouldBeNil)
				So(stats.FilesWritten, ShouldEqual, 3)
				So(stats.LapsGenerated, ShouldEqual, 120)
				So(stats.LegalLaps, ShouldBeLessThan, 120)
				So(stats.DriversExpected, ShouldEqual, 8)
				So(stats.DriversMatched, ShouldEqual, 8)

				names, _ := filepath.Glob(filepath.Join(dir, "sim-*.json"))
				So(len(names), ShouldEqual, 3)
			})
		})

		Convey("When the client asks for the active event", func() {
			id, err := NewClient(srv.URL, time.Second).ActiveEvent(context.Background())
			So(err, ShouldBeNil)
			So(id, ShouldResemble, event.ID)
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := fakeService(t.TempDir(), false)
		defer srv.Close()
		cfg := testConfig(t.TempDir())
		cfg.BaseURL = srv.URL

		_, err := Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})

	Convey("Given a service that never ingests", t, func() {
		srv := fakeService(t.TempDir(), true)
		defer srv.Close()
		cfg := testConfig(t.TempDir())
		cfg.BaseURL = srv.URL
		cfg.Wait = 50 * time.Millisecond
		cfg.PollInterval = 10 * time.Millisecond

		stats, err := Run(context.Background(), cfg)
		So(errors.Is(err, ErrNotConverged), ShouldBeTrue)
		So(errors.Is(err, ErrMissingDriver), ShouldBeTrue)
		So(stats.Polls, ShouldBeGreaterThanOrEqualTo, 1)
	})
}
