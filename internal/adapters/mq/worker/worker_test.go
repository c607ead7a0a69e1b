package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/timeattack/internal/adapters/mq/queue"
	worker "github.com/okian/timeattack/internal/adapters/mq/worker"
	model "github.com/okian/timeattack/internal/domain/model"
	logging "github.com/okian/timeattack/pkg/logger"
)

func fill(jobs []queue.Job) *queue.InMemoryQueue {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs) + 1))
	for _, j := range jobs {
		q.Enqueue(context.Background(), j)
	}
	_ = q.Close()
	return q
}

func collect(ch <-chan worker.Result) map[int]worker.Result {
	out := map[int]worker.Result{}
	for r := range ch {
		out[r.Seq] = r
	}
	return out
}

func TestDecodeFile(t *testing.T) {
	convey.Convey("Given result files on disk", t, func() {
		_ = logging.Init()
		dir := t.TempDir()
		good := filepath.Join(dir, "good.json")
		bad := filepath.Join(dir, "bad.json")
		convey.So(os.WriteFile(good, []byte(`{"TrackName":"monza","Laps":[{"DriverGuid":"g1","DriverName":"A","LapTime":90000,"Timestamp":1}]}`), 0o644), convey.ShouldBeNil)
		convey.So(os.WriteFile(bad, []byte(`{"TrackName":`), 0o644), convey.ShouldBeNil)

		convey.Convey("When decoding a well-formed file", func() {
			r := worker.DecodeFile(context.Background(), queue.Job{Name: "good.json", Path: good})

			convey.Convey("Then the laps and modification time should be returned", func() {
				convey.So(r.Err, convey.ShouldBeNil)
				convey.So(r.File.TrackName, convey.ShouldEqual, "monza")
				convey.So(len(r.File.Laps), convey.ShouldEqual, 1)
				convey.So(r.ModTime.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When decoding a malformed file", func() {
			r := worker.DecodeFile(context.Background(), queue.Job{Name: "bad.json", Path: bad})

			convey.Convey("Then a data error naming the file should be returned", func() {
				convey.So(errors.Is(r.Err, model.ErrData), convey.ShouldBeTrue)
				convey.So(r.Err.Error(), convey.ShouldContainSubstring, "bad.json")
			})
		})

		convey.Convey("When the file is missing", func() {
			r := worker.DecodeFile(context.Background(), queue.Job{Name: "gone.json", Path: filepath.Join(dir, "gone.json")})
			convey.So(errors.Is(r.Err, model.ErrData), convey.ShouldBeTrue)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a closed queue of jobs", t, func() {
		_ = logging.Init()
		var jobs []queue.Job
		for i := 0; i < 25; i++ {
			jobs = append(jobs, queue.Job{Seq: i, Name: "f"})
		}

		var calls atomic.Int32
		decoder := worker.DecoderFunc(func(_ context.Context, j queue.Job) worker.Result {
			calls.Add(1)
			r := worker.Result{Job: j}
			if j.Seq%5 == 0 {
				r.Err = errors.New("boom")
			}
			return r
		})

		convey.Convey("When a pool drains it", func() {
			pool := worker.NewPool(4, fill(jobs), decoder)
			got := collect(pool.Start(context.Background()))

			convey.Convey("Then every job should yield exactly one result", func() {
				convey.So(pool.Size(), convey.ShouldEqual, 4)
				convey.So(len(got), convey.ShouldEqual, 25)
				convey.So(calls.Load(), convey.ShouldEqual, 25)
				convey.So(got[5].Err, convey.ShouldNotBeNil)
				convey.So(got[6].Err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the pool size is not positive", func() {
			pool := worker.NewPool(0, fill(jobs), decoder)
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			convey.So(len(collect(pool.Start(context.Background()))), convey.ShouldEqual, 25)
		})
	})

	convey.Convey("Given an open queue and a cancelled context", t, func() {
		q := queue.NewInMemoryQueue()
		ctx, cancel := context.WithCancel(context.Background())
		pool := worker.NewPool(2, q, worker.DecoderFunc(worker.DecodeFile))
		results := pool.Start(ctx)
		cancel()

		convey.Convey("Then the results channel should close", func() {
			select {
			case _, ok := <-results:
				convey.So(ok, convey.ShouldBeFalse)
			case <-time.After(time.Second):
				convey.So("results channel still open", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestWorkerOptions(t *testing.T) {
	convey.Convey("Given worker options", t, func() {
		w := worker.NewWorker(worker.DecoderFunc(worker.DecodeFile),
			worker.WithName("decode-0"),
			worker.WithLogger(logging.Get()))
		convey.So(w, convey.ShouldNotBeNil)
	})
}
