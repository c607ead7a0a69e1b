package standings

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/scoring"
)

type mapSource map[model.EventID]model.Leaderboard

func (m mapSource) Get(_ context.Context, id model.EventID) (model.Leaderboard, bool, error) {
	lb, ok := m[id]
	return lb, ok, nil
}

type failingSource struct{}

func (failingSource) Get(context.Context, model.EventID) (model.Leaderboard, bool, error) {
	return nil, false, errors.New("disk gone")
}

func events(keys ...string) []model.Event {
	out := make([]model.Event, len(keys))
	for i, k := range keys {
		out[i] = model.Event{ID: model.NewEventID(1, k)}
	}
	return out
}

func entry(name, guid string, ms int64) model.LeaderboardEntry {
	return model.LeaderboardEntry{Driver: name, DriverGUID: guid, LapMS: ms}
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	relative := scoring.NewRelativePerformance(0)

	convey.Convey("Given the single event example season", t, func() {
		evs := events("event1")
		src := mapSource{evs[0].ID: {entry("A", "g1", 90000), entry("B", "g2", 95000)}}

		convey.Convey("When computing with relative scoring and two drop weeks", func() {
			table, err := Compute(ctx, evs, src, relative, 2)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then nothing is counted because every event is a drop week", func() {
				convey.So(table[0].TotalPoints, convey.ShouldEqual, 0)
				convey.So(table[0].Drops, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When computing without drop weeks", func() {
			table, err := Compute(ctx, evs, src, relative, 0)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then A scores 101 and B 95.68", func() {
				convey.So(len(table), convey.ShouldEqual, 2)
				convey.So(table[0].Driver, convey.ShouldEqual, "A")
				convey.So(table[0].TotalPoints, convey.ShouldEqual, 101.00)
				convey.So(table[1].Driver, convey.ShouldEqual, "B")
				convey.So(table[1].TotalPoints, convey.ShouldEqual, 95.68)
				convey.So(table[1].Kept, convey.ShouldResemble, []model.EventScore{{EventIndex: 1, EventID: "season1#event1", Points: 95.68}})
			})
		})
	})

	convey.Convey("Given four point events and one drop week", t, func() {
		evs := events("event1", "event2", "event3", "event4")
		position := scoring.NewPositionTable(nil)
		src := mapSource{
			evs[0].ID: {entry("A", "g1", 90000), entry("B", "g2", 91000)},
			evs[1].ID: {entry("B", "g2", 90000), entry("A", "g1", 91000)},
			evs[2].ID: {entry("A renamed", "g1", 90000), entry("C", "g3", 91000)},
			evs[3].ID: {},
		}

		table, err := Compute(ctx, evs, src, position, 1)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then each driver keeps at most three scores", func() {
			for _, e := range table {
				convey.So(len(e.Kept), convey.ShouldBeLessThanOrEqualTo, Counted(4, 1))
				convey.So(len(e.Kept)+len(e.Dropped), convey.ShouldEqual, e.TotalEvents)
				convey.So(e.Drops, convey.ShouldEqual, len(e.Dropped))
			}
		})

		convey.Convey("Then totals and names follow the latest event", func() {
			convey.So(table[0].DriverGUID, convey.ShouldEqual, "g1")
			convey.So(table[0].Driver, convey.ShouldEqual, "A renamed")
			convey.So(table[0].TotalPoints, convey.ShouldEqual, 27)
			convey.So(table[0].TotalEvents, convey.ShouldEqual, 3)
			convey.So(table[1].TotalPoints, convey.ShouldEqual, 17)
			convey.So(table[2].TotalPoints, convey.ShouldEqual, 7)
		})
	})

	convey.Convey("Given more events than the counted limit", t, func() {
		evs := events("event1", "event2", "event3")
		src := mapSource{
			evs[0].ID: {entry("A", "g1", 1), entry("B", "g2", 2)},
			evs[1].ID: {entry("B", "g2", 1), entry("A", "g1", 2)},
			evs[2].ID: {entry("A", "g1", 1), entry("B", "g2", 2)},
		}
		table, err := Compute(ctx, evs, src, scoring.NewPositionTable([]float64{5, 5}), 2)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then equal points keep event order and ties keep encounter order", func() {
			convey.So(table[0].DriverGUID, convey.ShouldEqual, "g1")
			convey.So(table[0].Kept[0].EventIndex, convey.ShouldEqual, 1)
			convey.So(table[0].Dropped[0].EventIndex, convey.ShouldEqual, 2)
			convey.So(table[1].DriverGUID, convey.ShouldEqual, "g2")
		})
	})

	convey.Convey("Given a source that fails", t, func() {
		_, err := Compute(ctx, events("event1"), failingSource{}, relative, 0)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "season1#event1")
	})

	convey.Convey("Counted never goes negative", t, func() {
		convey.So(Counted(3, 5), convey.ShouldEqual, 0)
		convey.So(Counted(8, 2), convey.ShouldEqual, 6)
		convey.So(Counted(4, -1), convey.ShouldEqual, 4)
	})
}
