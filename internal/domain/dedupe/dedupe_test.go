package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/timeattack/internal/domain/dedupe"
	"github.com/okian/timeattack/internal/domain/model"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is recorded twice", func() {
			first := d.SeenAndRecord(ctx, "season1#event1/g1#100")
			second := d.SeenAndRecord(ctx, "season1#event1/g1#100")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded key is unrecorded", func() {
			d.SeenAndRecord(ctx, "k")
			d.Unrecord(ctx, "k")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "k"), ShouldBeFalse)
			})
		})

		Convey("When the empty key is used", func() {
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeTrue)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := range 4 {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}

		Convey("Then the oldest key is evicted first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "k3"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "k1"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "k0"), ShouldBeFalse)
		})

		Convey("Then an unrecorded key can be recorded again", func() {
			d.Unrecord(ctx, "k2")
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "k2"), ShouldBeFalse)
			So(d.Size(), ShouldBeLessThanOrEqualTo, 3)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := range 1000 {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		d.Unrecord(ctx, "k5")
		So(d.Size(), ShouldEqual, 999)
	})

	Convey("Given concurrent writers", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 100 {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each key is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}

func TestFresh(t *testing.T) {
	ctx := context.Background()
	id := model.NewEventID(1, "event1")

	Convey("Given a batch with repeated laps", t, func() {
		d := dedupe.NewInMemoryDeduper()
		laps := []model.LapRecord{
			{EventID: id, LapKey: "g1#1"},
			{EventID: id, LapKey: "g1#2"},
			{EventID: id, LapKey: "g1#1"},
			{EventID: model.NewEventID(1, "event2"), LapKey: "g1#1"},
		}

		out, dup := dedupe.Fresh(ctx, d, laps)

		Convey("Then duplicates are skipped and keys are scoped by event", func() {
			So(len(out), ShouldEqual, 3)
			So(dup, ShouldEqual, 1)
		})

		Convey("Then forgetting a batch lets it through again", func() {
			dedupe.Forget(ctx, d, out)
			again, dup := dedupe.Fresh(ctx, d, laps)
			So(len(again), ShouldEqual, 3)
			So(dup, ShouldEqual, 1)
		})
	})
}
