package poller

import (
	"time"

	"github.com/okian/timeattack/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTickTimeout bounds each tick.
func WithTickTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithWake adds an early wake-up channel, typically a trigger's.
func WithWake(c <-chan struct{}) Option {
	return func(p *Poller) {
		p.wake = c
	}
}

// WithLogger sets the poller logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}
