// Package supervisor runs the polling loops and operational services under
// a suture supervision tree. A panicking or failing loop is restarted with
// backoff while its siblings keep running.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Tree is the root supervisor with one layer for the pipeline loops and one
// for operational services (watchers, HTTP, system metrics).
type Tree struct {
	root  *suture.Supervisor
	loops *suture.Supervisor
	ops   *suture.Supervisor
	cfg   settings
}

// New builds an empty tree.
func New(opts ...Option) *Tree {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	hook := (&sutureslog.Handler{Logger: cfg.slog}).MustHook()
	rootSpec := suture.Spec{
		EventHook:        hook,
		FailureThreshold: cfg.failureThreshold,
		FailureDecay:     cfg.failureDecay,
		FailureBackoff:   cfg.failureBackoff,
		Timeout:          cfg.shutdownTimeout,
	}
	childSpec := rootSpec
	childSpec.EventHook = nil

	t := &Tree{
		root:  suture.New("timeattack", rootSpec),
		loops: suture.New("loops", childSpec),
		ops:   suture.New("ops", childSpec),
		cfg:   cfg,
	}
	t.root.Add(t.loops)
	t.root.Add(t.ops)
	return t
}

// AddLoop supervises a pipeline loop.
func (t *Tree) AddLoop(svc suture.Service) suture.ServiceToken {
	return t.loops.Add(svc)
}

// AddOps supervises an operational service.
func (t *Tree) AddOps(svc suture.Service) suture.ServiceToken {
	return t.ops.Add(svc)
}

// Serve runs the tree until ctx is done. A clean shutdown returns nil.
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ServeBackground runs the tree in a goroutine.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that ignored shutdown.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// ShutdownTimeout is how long each service gets to stop.
func (t *Tree) ShutdownTimeout() time.Duration { return t.cfg.shutdownTimeout }
