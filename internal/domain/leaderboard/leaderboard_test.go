package leaderboard_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/domain/leaderboard"
	"github.com/okian/timeattack/internal/domain/model"
)

var (
	eventID = model.NewEventID(1, "event1")
	monza   = model.Event{ID: eventID, Track: "monza", Cars: []string{"bmw_m3"}}
)

func lap(seq int64, guid, name string, ms int64) model.LapRecord {
	return model.LapRecord{
		EventID:    eventID,
		DriverGUID: guid,
		DriverName: name,
		CarModel:   "bmw_m3",
		TrackName:  "monza",
		LapTimeMS:  ms,
		UploadSeq:  seq,
	}
}

func TestAggregate(t *testing.T) {
	Convey("Given two drivers with clean laps", t, func() {
		laps := []model.LapRecord{
			lap(1, "g1", "A", 90000),
			lap(2, "g2", "B", 95000),
		}

		Convey("When aggregating", func() {
			lb, stats := leaderboard.Aggregate(eventID, laps, monza)

			Convey("Then the faster driver should lead", func() {
				So(len(lb), ShouldEqual, 2)
				So(lb[0].Driver, ShouldEqual, "A")
				So(lb[0].LapMS, ShouldEqual, 90000)
				So(lb[0].LapTime, ShouldEqual, "1:30.000")
				So(lb[1].Driver, ShouldEqual, "B")
				So(lb[1].LapMS, ShouldEqual, 95000)
				So(stats.Kept, ShouldEqual, 2)
			})
		})
	})

	Convey("Given many laps per driver", t, func() {
		laps := []model.LapRecord{
			lap(1, "g1", "Old Name", 92000),
			lap(2, "g2", "B", 91000),
			lap(3, "g1", "New Name", 89000),
			lap(4, "g1", "Newest Name", 89500),
		}

		Convey("Then only the minimum lap per guid should be kept", func() {
			lb, _ := leaderboard.Aggregate(eventID, laps, monza)
			So(len(lb), ShouldEqual, 2)
			So(lb[0].DriverGUID, ShouldEqual, "g1")
			So(lb[0].LapMS, ShouldEqual, 89000)
			So(lb[0].Driver, ShouldEqual, "New Name")
		})
	})

	Convey("Given a fastest lap with a cut", t, func() {
		cut := lap(1, "g1", "A", 60000)
		cut.Cuts = 1
		laps := []model.LapRecord{cut, lap(2, "g1", "A", 91000), lap(3, "g2", "B", 90000)}

		Convey("Then the cut lap should never appear", func() {
			lb, stats := leaderboard.Aggregate(eventID, laps, monza)
			So(stats.Cut, ShouldEqual, 1)
			for _, e := range lb {
				So(e.LapMS, ShouldNotEqual, 60000)
			}
			So(lb[0].Driver, ShouldEqual, "B")
			So(lb[1].LapMS, ShouldEqual, 91000)
		})
	})

	Convey("Given laps on the wrong track or car", t, func() {
		wrongTrack := lap(1, "g1", "A", 80000)
		wrongTrack.TrackName = "spa"
		upperTrack := lap(2, "g2", "B", 85000)
		upperTrack.TrackName = "MONZA"
		wrongCar := lap(3, "g3", "C", 70000)
		wrongCar.CarModel = "ferrari_458"

		lb, stats := leaderboard.Aggregate(eventID, []model.LapRecord{wrongTrack, upperTrack, wrongCar}, monza)

		Convey("Then only the legal lap should remain", func() {
			So(len(lb), ShouldEqual, 1)
			So(lb[0].Driver, ShouldEqual, "B")
			So(stats.WrongTrack, ShouldEqual, 1)
			So(stats.WrongCar, ShouldEqual, 1)
			So(stats.Dropped(), ShouldResemble, map[string]int{"track": 1, "car": 1})
		})

		Convey("Then an event without a car list accepts any car", func() {
			open := monza
			open.Cars = nil
			lb, _ := leaderboard.Aggregate(eventID, []model.LapRecord{wrongCar}, open)
			So(len(lb), ShouldEqual, 1)
		})
	})

	Convey("Given laps recorded for a different event", t, func() {
		other := lap(1, "g1", "A", 80000)
		other.EventID = model.NewEventID(1, "event2")
		lb, stats := leaderboard.Aggregate(eventID, []model.LapRecord{other}, monza)
		So(len(lb), ShouldEqual, 0)
		So(stats.OtherEvent, ShouldEqual, 1)
	})

	Convey("Given laps without a driver guid", t, func() {
		laps := []model.LapRecord{lap(1, "", "Ghost", 80000), lap(2, "g2", "B", 90000)}

		Convey("When name fallback is disabled", func() {
			lb, stats := leaderboard.Aggregate(eventID, laps, monza)

			Convey("Then the lap should be dropped and counted", func() {
				So(len(lb), ShouldEqual, 1)
				So(stats.NoIdentity, ShouldEqual, 1)
				So(errors.Is(stats.IdentityErr(eventID), model.ErrIdentity), ShouldBeTrue)
			})
		})

		Convey("When name fallback is enabled", func() {
			lb, stats := leaderboard.Aggregate(eventID, laps, monza, leaderboard.WithNameFallback(true))

			Convey("Then the lap should be keyed by name", func() {
				So(len(lb), ShouldEqual, 2)
				So(lb[0].Driver, ShouldEqual, "Ghost")
				So(lb[0].DriverGUID, ShouldBeEmpty)
				So(lb[0].Identity(), ShouldEqual, "name:Ghost")
				So(stats.NameFallback, ShouldEqual, 1)
			})
		})
	})

	Convey("Given exact ties", t, func() {
		laps := []model.LapRecord{
			lap(5, "g2", "Later", 90000),
			lap(3, "g1", "Earlier", 90000),
		}

		Convey("Then the earlier upload should rank first", func() {
			lb, _ := leaderboard.Aggregate(eventID, laps, monza)
			So(lb[0].Driver, ShouldEqual, "Earlier")
			So(lb[1].Driver, ShouldEqual, "Later")
		})
	})

	Convey("Given an upload window", t, func() {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		early := lap(1, "g1", "A", 80000)
		early.UploadedAt = start.Add(-time.Hour)
		inside := lap(2, "g2", "B", 90000)
		inside.UploadedAt = start.Add(time.Hour)

		lb, stats := leaderboard.Aggregate(eventID, []model.LapRecord{early, inside}, monza,
			leaderboard.WithWindow(start, start.Add(7*24*time.Hour)))
		So(len(lb), ShouldEqual, 1)
		So(lb[0].Driver, ShouldEqual, "B")
		So(stats.OutOfWindow, ShouldEqual, 1)
	})

	Convey("Given the same lap set aggregated twice", t, func() {
		laps := []model.LapRecord{
			lap(1, "g3", "C", 93000), lap(2, "g1", "A", 90000),
			lap(3, "g2", "B", 90000), lap(4, "g3", "C", 91000),
		}
		first, _ := leaderboard.Aggregate(eventID, laps, monza)
		second, _ := leaderboard.Aggregate(eventID, laps, monza)

		Convey("Then the output should be identical and sorted without duplicates", func() {
			So(first.Equal(second), ShouldBeTrue)
			seen := map[string]bool{}
			for i, e := range first {
				So(seen[e.DriverGUID], ShouldBeFalse)
				seen[e.DriverGUID] = true
				if i > 0 {
					So(first[i-1].LapMS, ShouldBeLessThanOrEqualTo, e.LapMS)
				}
			}
		})
	})
}
