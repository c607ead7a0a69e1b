package publish

import (
	"context"
	"time"

	"github.com/okian/timeattack/pkg/logger"
)

const (
	defaultSettleDelay  = 2 * time.Second
	defaultHistoryLimit = 50
)

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithSettleDelay sets how long to wait before re-reading the source.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d >= 0 {
			p.settle = d
		}
	}
}

// WithHistoryLimit sets how many recent messages are scanned for a marker.
func WithHistoryLimit(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.historyLimit = n
		}
	}
}

// WithAuthorID restricts marker matches to messages posted by id. When unset
// the channel's own identity is used.
func WithAuthorID(id string) Option {
	return func(p *Publisher) {
		p.authorID = id
	}
}

// WithHints backs message ids with a persistent store.
func WithHints(h HintStore) Option {
	return func(p *Publisher) {
		p.hints = h
	}
}

// WithState shares publisher state between publishers.
func WithState(s *State) Option {
	return func(p *Publisher) {
		if s != nil {
			p.state = s
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSleep replaces the settle wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Publisher) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}
