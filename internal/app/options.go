package service

import (
	"io"
	"time"

	"github.com/okian/timeattack/internal/adapters/channel"
	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/dedupe"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/domain/scoring"
	"github.com/okian/timeattack/internal/publish"
	"github.com/okian/timeattack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSchedule sets the schedule loader and the resolver applied to it.
func WithSchedule(l *schedule.Loader, r *schedule.Resolver) Option {
	return func(s *Service) {
		s.schedules = l
		if r != nil {
			s.resolver = r
		}
	}
}

// WithLapStore sets the lap store.
func WithLapStore(laps LapStore) Option {
	return func(s *Service) {
		s.laps = laps
	}
}

// WithFileLedger sets the processed-file ledger.
func WithFileLedger(l FileLedger) Option {
	return func(s *Service) {
		s.files = l
	}
}

// WithStores sets the artifact stores.
func WithStores(events *repository.ActiveEventStore, boards *repository.LeaderboardStore, standings *repository.StandingsStore) Option {
	return func(s *Service) {
		s.events = events
		s.boards = boards
		s.standings = standings
	}
}

// WithDeduper sets the ingestion lap-key deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithStrategy sets the standings scoring strategy.
func WithStrategy(st scoring.Strategy) Option {
	return func(s *Service) {
		if st != nil {
			s.strategy = st
		}
	}
}

// WithDropWeeks sets how many worst results each driver drops.
func WithDropWeeks(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.dropWeeks = n
		}
	}
}

// WithNameFallback keys laps without a GUID by display name.
func WithNameFallback(enabled bool) Option {
	return func(s *Service) {
		s.nameFallback = enabled
	}
}

// WithEventWindow only counts laps uploaded between an event's start and
// the next event's start.
func WithEventWindow(enabled bool) Option {
	return func(s *Service) {
		s.eventWindow = enabled
	}
}

// WithResultsDir sets the directory scanned for result files.
func WithResultsDir(dir string) Option {
	return func(s *Service) {
		s.resultsDir = dir
	}
}

// WithIngestWorkers sets how many result files are decoded concurrently.
// Zero uses one worker per CPU.
func WithIngestWorkers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.ingestWorkers = n
		}
	}
}

// WithRegistry sets the driver registry file and the channel it is imported from.
func WithRegistry(path string, ch channel.Channel, historyLimit int) Option {
	return func(s *Service) {
		s.registryPath = path
		s.registryCh = ch
		if historyLimit > 0 {
			s.registryLimit = historyLimit
		}
	}
}

// WithPublishers sets the per-artifact publishers. A nil publisher disables its loop.
func WithPublishers(leaderboard, standings, sched *publish.Publisher) Option {
	return func(s *Service) {
		s.leaderboardPub = leaderboard
		s.standingsPub = standings
		s.schedulePub = sched
	}
}

// WithClock sets the time source used to resolve the active event.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithClosers registers resources closed by Close, in reverse order.
func WithClosers(c ...io.Closer) Option {
	return func(s *Service) {
		s.closers = append(s.closers, c...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
