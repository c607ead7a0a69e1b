package supervisor

import (
	"log/slog"
	"time"

	"github.com/okian/timeattack/pkg/logger"
)

type settings struct {
	failureThreshold float64
	failureDecay     float64
	failureBackoff   time.Duration
	shutdownTimeout  time.Duration
	slog             *slog.Logger
}

func defaultSettings() settings {
	return settings{
		failureThreshold: 5,
		failureDecay:     30,
		failureBackoff:   15 * time.Second,
		shutdownTimeout:  10 * time.Second,
		slog:             logger.Slog(),
	}
}

// Option applies a configuration option to the Tree.
type Option func(*settings)

// WithFailureThreshold sets how many failures within the decay window
// trigger backoff.
func WithFailureThreshold(n float64) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithFailureDecay sets the failure decay in seconds.
func WithFailureDecay(seconds float64) Option {
	return func(s *settings) {
		if seconds > 0 {
			s.failureDecay = seconds
		}
	}
}

// WithFailureBackoff sets the pause after the threshold is crossed.
func WithFailureBackoff(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.failureBackoff = d
		}
	}
}

// WithShutdownTimeout bounds how long each service gets to stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithSlog routes supervisor events to l.
func WithSlog(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.slog = l
		}
	}
}
