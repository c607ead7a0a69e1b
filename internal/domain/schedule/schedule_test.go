package schedule_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/schedule"
)

const seasonOne = `{
  "season": 1,
  "preseason": {"startDate": "2023-12-25", "track": "ks_vallelunga", "cars": ["bmw_m3"]},
  "event1": {"startDate": "2024-01-01", "track": "monza", "cars": ["bmw_m3"]},
  "event2": {"startDate": "2024-01-08", "track": "spa", "trackConfig": "gp", "cars": ["bmw_m3", "ferrari_458"]},
  "postseason": {"startDate": "2024-02-01", "track": "imola", "cars": []}
}`

func chicago(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("tz database unavailable")
	}
	return loc
}

func TestParse(t *testing.T) {
	Convey("Given a JSON schedule", t, func() {
		s, err := schedule.Parse([]byte(seasonOne))

		Convey("Then keys should keep declaration order", func() {
			So(err, ShouldBeNil)
			So(s.Season, ShouldEqual, 1)
			So(s.SeasonID(), ShouldEqual, "season1")
			So(s.Keys(), ShouldResemble, []string{"preseason", "event1", "event2", "postseason"})
			def, ok := s.Def("event2")
			So(ok, ShouldBeTrue)
			So(def.TrackConfig, ShouldEqual, "gp")
		})
	})

	Convey("Given a YAML schedule with a bad date", t, func() {
		s, err := schedule.Parse([]byte(`
season: 2
event1:
  startDate: 2024-13-40
  track: monza
event2:
  startDate: "2024-01-08"
  track: spa
`))

		Convey("Then the bad entry should be set aside", func() {
			So(err, ShouldBeNil)
			So(s.Keys(), ShouldResemble, []string{"event2"})
			So(s.Invalid(), ShouldContainKey, "event1")
		})
	})

	Convey("Given an empty schedule", t, func() {
		_, err := schedule.Parse([]byte(`{"season": 1}`))

		Convey("Then it should be a config error", func() {
			So(errors.Is(err, model.ErrConfig), ShouldBeTrue)
			So(errors.Is(err, schedule.ErrEmptySchedule), ShouldBeTrue)
		})
	})

	Convey("Given a schedule that is not a mapping", t, func() {
		_, err := schedule.Parse([]byte(`[1, 2, 3]`))
		So(errors.Is(err, model.ErrConfig), ShouldBeTrue)
	})
}

func TestResolve(t *testing.T) {
	Convey("Given a single-event schedule", t, func() {
		loc := chicago(t)
		s, err := schedule.Parse([]byte(`{"season":1,"event1":{"startDate":"2024-01-01","track":"monza","cars":["bmw_m3"]}}`))
		So(err, ShouldBeNil)
		r := schedule.NewResolver(schedule.WithLocation(loc))
		ctx := context.Background()

		Convey("When now is after the start", func() {
			id, err := r.Resolve(ctx, s, time.Date(2024, 1, 2, 0, 0, 0, 0, loc))

			Convey("Then the event should be active", func() {
				So(err, ShouldBeNil)
				So(id.String(), ShouldEqual, "season1#event1")
			})
		})

		Convey("When now is before the start", func() {
			id, err := r.Resolve(ctx, s, time.Date(2023, 12, 31, 0, 0, 0, 0, loc))

			Convey("Then the fallback should be returned", func() {
				So(err, ShouldBeNil)
				So(id.Key, ShouldEqual, "preseason")
				So(id.String(), ShouldEqual, "season1#preseason")
			})
		})

		Convey("When now is exactly local midnight of the start date", func() {
			id, err := r.Resolve(ctx, s, time.Date(2024, 1, 1, 0, 0, 0, 0, loc))
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "event1")
		})

		Convey("When a start offset pushes the start later", func() {
			shifted := schedule.NewResolver(schedule.WithLocation(loc), schedule.WithStartOffset(18*time.Hour))
			id, err := shifted.Resolve(ctx, s, time.Date(2024, 1, 1, 12, 0, 0, 0, loc))
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "preseason")
		})
	})

	Convey("Given a full season", t, func() {
		loc := chicago(t)
		s, err := schedule.Parse([]byte(seasonOne))
		So(err, ShouldBeNil)
		r := schedule.NewResolver(schedule.WithLocation(loc))
		ctx := context.Background()

		Convey("Then the latest started event wins", func() {
			id, err := r.Resolve(ctx, s, time.Date(2024, 1, 10, 9, 0, 0, 0, loc))
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "event2")

			id, err = r.Resolve(ctx, s, time.Date(2023, 12, 26, 0, 0, 0, 0, loc))
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "preseason")
		})

		Convey("Then point events exclude pre and post season", func() {
			points, err := r.PointEvents(ctx, s)
			So(err, ShouldBeNil)
			So(len(points), ShouldEqual, 2)
			So(points[0].ID.Key, ShouldEqual, "event1")
			So(points[1].ID.Key, ShouldEqual, "event2")
		})

		Convey("Then unknown events are config errors", func() {
			_, err := r.Event(ctx, s, "event9")
			So(errors.Is(err, model.ErrConfig), ShouldBeTrue)
			So(errors.Is(err, schedule.ErrUnknownEvent), ShouldBeTrue)

			ev, err := r.Event(ctx, s, "event2")
			So(err, ShouldBeNil)
			So(ev.Cars, ShouldResemble, []string{"bmw_m3", "ferrari_458"})
			So(ev.Points, ShouldBeTrue)
		})
	})

	Convey("Given two events starting on the same day", t, func() {
		loc := chicago(t)
		r := schedule.NewResolver(schedule.WithLocation(loc))
		now := time.Date(2024, 3, 2, 0, 0, 0, 0, loc)

		Convey("When no order is declared the natural key order decides", func() {
			s, err := schedule.Parse([]byte(`{"season":1,
				"event10":{"startDate":"2024-03-01","track":"a"},
				"event9":{"startDate":"2024-03-01","track":"b"}}`))
			So(err, ShouldBeNil)
			id, err := r.Resolve(context.Background(), s, now)
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "event10")
		})

		Convey("When an order is declared it wins over the key", func() {
			s, err := schedule.Parse([]byte(`{"season":1,
				"event10":{"startDate":"2024-03-01","track":"a","order":1},
				"event9":{"startDate":"2024-03-01","track":"b","order":2}}`))
			So(err, ShouldBeNil)
			id, err := r.Resolve(context.Background(), s, now)
			So(err, ShouldBeNil)
			So(id.Key, ShouldEqual, "event9")
		})
	})

	Convey("Given tied events where only some declare an order", t, func() {
		loc := chicago(t)
		r := schedule.NewResolver(schedule.WithLocation(loc))
		now := time.Date(2024, 3, 2, 0, 0, 0, 0, loc)
		entries := map[string]string{
			"event1": `"event1":{"startDate":"2024-03-01","track":"a","order":5}`,
			"event2": `"event2":{"startDate":"2024-03-01","track":"b"}`,
			"event3": `"event3":{"startDate":"2024-03-01","track":"c","order":1}`,
		}
		declarations := [][]string{
			{"event1", "event2", "event3"},
			{"event3", "event1", "event2"},
			{"event2", "event3", "event1"},
			{"event2", "event1", "event3"},
		}

		Convey("Then the winner and point order do not depend on declaration order", func() {
			for _, keys := range declarations {
				doc := `{"season":1`
				for _, k := range keys {
					doc += "," + entries[k]
				}
				s, err := schedule.Parse([]byte(doc + "}"))
				So(err, ShouldBeNil)

				id, err := r.Resolve(context.Background(), s, now)
				So(err, ShouldBeNil)
				So(id.Key, ShouldEqual, "event1")

				points, err := r.PointEvents(context.Background(), s)
				So(err, ShouldBeNil)
				So(len(points), ShouldEqual, 3)
				So(points[0].ID.Key, ShouldEqual, "event2")
				So(points[1].ID.Key, ShouldEqual, "event3")
				So(points[2].ID.Key, ShouldEqual, "event1")
			}
		})
	})

	Convey("Given a schedule where every date is broken", t, func() {
		s, err := schedule.Parse([]byte(`{"season":1,"event1":{"startDate":"soon","track":"a"}}`))
		So(err, ShouldBeNil)
		_, err = schedule.NewResolver().Resolve(context.Background(), s, time.Now())

		Convey("Then resolution should fail with a config error", func() {
			So(errors.Is(err, model.ErrConfig), ShouldBeTrue)
		})
	})
}

func TestLoader(t *testing.T) {
	Convey("Given a schedule file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "season.json")
		So(os.WriteFile(path, []byte(seasonOne), 0o600), ShouldBeNil)
		ctx := context.Background()

		l, err := schedule.NewLoader(ctx, path)
		So(err, ShouldBeNil)
		So(l.Schedule().Season, ShouldEqual, 1)

		Convey("When the file is replaced with a valid schedule", func() {
			var seen *schedule.Schedule
			l.OnChange(func(s *schedule.Schedule) { seen = s })
			So(os.WriteFile(path, []byte(`{"season":2,"event1":{"startDate":"2025-01-01","track":"x"}}`), 0o600), ShouldBeNil)
			_, err := l.Reload(ctx)

			Convey("Then the new schedule should be served", func() {
				So(err, ShouldBeNil)
				So(l.Schedule().Season, ShouldEqual, 2)
				So(seen, ShouldNotBeNil)
			})
		})

		Convey("When the file becomes garbage", func() {
			So(os.WriteFile(path, []byte(`{{{`), 0o600), ShouldBeNil)
			_, err := l.Reload(ctx)

			Convey("Then the previous schedule should be kept", func() {
				So(err, ShouldNotBeNil)
				So(l.Schedule().Season, ShouldEqual, 1)
			})
		})

		Convey("When watching and the file changes", func() {
			changed := make(chan int, 4)
			l.OnChange(func(s *schedule.Schedule) {
				select {
				case changed <- s.Season:
				default:
				}
			})
			stop, err := l.Watch(ctx)
			So(err, ShouldBeNil)
			defer stop()

			So(os.WriteFile(path, []byte(`{"season":3,"event1":{"startDate":"2025-01-01","track":"x"}}`), 0o600), ShouldBeNil)

			Convey("Then the reload callback should fire", func() {
				select {
				case season := <-changed:
					So(season, ShouldEqual, 3)
				case <-time.After(3 * time.Second):
					So("no reload observed", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given a missing schedule file", t, func() {
		_, err := schedule.NewLoader(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
		So(errors.Is(err, model.ErrConfig), ShouldBeTrue)
	})
}
