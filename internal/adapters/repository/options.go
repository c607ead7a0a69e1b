package repository

import (
	"time"

	"github.com/okian/timeattack/pkg/logger"
)

type storeOptions struct {
	logger logger.Logger
	now    func() time.Time
}

// Option applies a configuration option to a store.
type Option func(*storeOptions)

// WithLogger sets the logger used to report recovered artifacts.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source for last_updated stamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(name string, opts []Option) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named(name)
	}
	return o
}
