// Package poller runs one pipeline stage on a ticker, strictly one tick at
// a time, with early wake-ups from a trigger.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// Default poller configuration constants.
const (
	defaultInterval    = time.Minute
	defaultTickTimeout = 2 * time.Minute
)

// Tick is one unit of work. Errors are logged and counted; they never stop the loop.
type Tick func(ctx context.Context) error

type cycleKey struct{}

// CycleID returns the id of the tick running under ctx.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// Poller drives one Tick.
type Poller struct {
	name     string
	tick     Tick
	interval time.Duration
	timeout  time.Duration
	wake     <-chan struct{}
	running  sync.Mutex
	logger   logger.Logger
}

// New creates a poller named name running tick.
func New(name string, tick Tick, opts ...Option) *Poller {
	p := &Poller{
		name:     name,
		tick:     tick,
		interval: defaultInterval,
		timeout:  defaultTickTimeout,
		logger:   logger.Get().Named("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.String("loop", name))
	return p
}

// String names the service for the supervisor.
func (p *Poller) String() string { return p.name }

// Serve ticks immediately, then on every interval or wake-up, until ctx is done.
func (p *Poller) Serve(ctx context.Context) error {
	p.logger.Info(ctx, "loop started", logger.Duration("interval", p.interval))
	_ = p.RunOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	wake := p.wake
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(context.WithoutCancel(ctx), "loop stopped")
			return ctx.Err()
		case <-ticker.C:
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
		}
		_ = p.RunOnce(ctx)
	}
}

// RunOnce runs a single tick under the tick timeout and returns its error.
// Concurrent callers wait for each other.
func (p *Poller) RunOnce(ctx context.Context) error {
	p.running.Lock()
	defer p.running.Unlock()

	id := newCycleID()
	tctx, cancel := context.WithTimeout(context.WithValue(ctx, cycleKey{}, id), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.tick(tctx)
	elapsed := time.Since(start)
	metrics.RecordTick(p.name, float64(elapsed.Milliseconds()))

	log := p.logger.With(logger.String("cycle", id))
	if err != nil {
		kind := KindLabel(err)
		metrics.RecordTickError(p.name, kind)
		log.Error(ctx, "tick failed",
			logger.String("kind", kind),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return fmt.Errorf("%s tick: %w", p.name, err)
	}
	log.Debug(ctx, "tick complete", logger.Duration("elapsed", elapsed))
	return nil
}

// KindLabel names the error kind for metrics and logs.
func KindLabel(err error) string {
	switch kind := model.KindOf(err); {
	case kind != nil:
		return kind.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
