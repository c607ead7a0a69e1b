package schedule

import (
	"time"

	"github.com/okian/timeattack/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLocation sets the zone in which start dates are read as local midnight.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithStartOffset shifts every event start by d.
func WithStartOffset(d time.Duration) Option {
	return func(r *Resolver) {
		r.offset = d
	}
}

// WithFallback sets the event key returned before the season starts.
func WithFallback(key string) Option {
	return func(r *Resolver) {
		if key != "" {
			r.fallback = key
		}
	}
}

// WithPointPrefix sets the key prefix of point-bearing events.
func WithPointPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.pointPrefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
