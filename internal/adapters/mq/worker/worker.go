// Package worker decodes queued result files on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/timeattack/internal/adapters/mq/queue"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/results"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// Result is the outcome of decoding one job.
type Result struct {
	queue.Job
	File    results.File
	ModTime time.Time
	Err     error
}

// Decoder turns a job into a Result.
type Decoder interface {
	Decode(ctx context.Context, job queue.Job) Result
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, job queue.Job) Result

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, job queue.Job) Result { return f(ctx, job) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// DecodeFile reads and decodes the result file at job.Path. Unreadable or
// malformed files are reported as data errors.
func DecodeFile(_ context.Context, job queue.Job) Result {
	const op = "worker.decode_file"
	r := Result{Job: job}
	info, err := os.Stat(job.Path)
	if err != nil {
		r.Err = model.NewError(op, model.ErrData, err)
		return r
	}
	data, err := os.ReadFile(job.Path)
	if err != nil {
		r.Err = model.NewError(op, model.ErrData, err)
		return r
	}
	f, err := results.Decode(data)
	if err != nil {
		r.Err = fmt.Errorf("%s: %w", job.Name, err)
		return r
	}
	r.File, r.ModTime = f, info.ModTime()
	return r
}

// Worker decodes jobs until its queue closes.
type Worker struct {
	decoder Decoder
	name    string
	logger  logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(decoder Decoder, opts ...Option) *Worker {
	w := &Worker{
		decoder: decoder,
		name:    "worker",
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run decodes jobs from in and sends results to out until in closes or ctx is done.
func (w *Worker) Run(ctx context.Context, in <-chan queue.Job, out chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-in:
			if !ok {
				return
			}
			r := w.process(ctx, job)
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) Result {
	start := time.Now()
	r := w.decoder.Decode(ctx, job)
	metrics.RecordFileDecode(float64(time.Since(start).Milliseconds()))
	if r.Err != nil {
		w.logger.Debug(ctx, "decode failed", logger.String("file", job.Name), logger.Error(r.Err))
	}
	return r
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	results chan Result
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a pool of size workers. A size below one uses one worker
// per CPU.
func NewPool(size int, q Queue, decoder Decoder) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, size),
		queue:   q,
		results: make(chan Result, size),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(decoder, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches the workers. The returned channel closes once every worker
// has stopped, which happens when the queue is closed and drained or ctx is
// done.
func (p *Pool) Start(ctx context.Context) <-chan Result {
	in := p.queue.Dequeue(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx, in, p.results)
		}(w)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
	p.logger.Debug(ctx, "decode workers started", logger.Int("workers", len(p.workers)))
	return p.results
}
