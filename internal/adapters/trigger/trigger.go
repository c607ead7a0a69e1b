// Package trigger wakes polling loops early when their inputs change.
package trigger

import (
	"sync"
)

// Trigger is a coalescing wake-up signal. Any number of Fire calls between
// two receives collapse into one wake-up; Fire never blocks.
type Trigger struct {
	name   string
	ch     chan struct{}
	mu     sync.RWMutex
	closed bool
}

// New creates a named trigger.
func New(name string) *Trigger {
	return &Trigger{name: name, ch: make(chan struct{}, 1)}
}

// Name returns the trigger name.
func (t *Trigger) Name() string { return t.name }

// Fire requests a wake-up. It reports whether a new wake-up was queued;
// false means one was already pending or the trigger is closed.
func (t *Trigger) Fire() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// C returns the wake-up channel. It is closed by Close.
func (t *Trigger) C() <-chan struct{} { return t.ch }

// Close stops the trigger. Further Fire calls are ignored.
func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.ch)
}

// IsClosed reports whether Close was called.
func (t *Trigger) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
