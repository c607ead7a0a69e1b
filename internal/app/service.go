// Package service wires the league pipeline together and exposes one
// operation per polling loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/timeattack/internal/adapters/channel"
	"github.com/okian/timeattack/internal/adapters/ledger"
	"github.com/okian/timeattack/internal/adapters/lapstore"
	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/dedupe"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/domain/scoring"
	"github.com/okian/timeattack/internal/domain/types"
	"github.com/okian/timeattack/internal/publish"
	"github.com/okian/timeattack/pkg/logger"
)

// Loop names, in pipeline order.
const (
	LoopEvent              = "event"
	LoopIngest             = "ingest"
	LoopLeaderboard        = "leaderboard"
	LoopStandings          = "standings"
	LoopPublishLeaderboard = "publish-leaderboard"
	LoopPublishStandings   = "publish-standings"
	LoopPublishSchedule    = "publish-schedule"
)

// LapStore is the lap storage the service reads and appends to.
type LapStore interface {
	lapstore.Reader
	lapstore.Writer
	Count(ctx context.Context, id model.EventID) (int, error)
}

// FileLedger remembers which result files were ingested.
type FileLedger interface {
	FileProcessed(ctx context.Context, name string) (bool, error)
	MarkFileProcessed(ctx context.Context, name string, rec ledger.FileRecord) error
	ProcessedFiles(ctx context.Context) ([]string, error)
}

// Loop is one named pipeline stage.
type Loop struct {
	Name string
	Tick func(ctx context.Context) error
}

// Service implements every pipeline stage on top of its stores.
type Service struct {
	// Core components
	schedules *schedule.Loader
	resolver  *schedule.Resolver
	laps      LapStore
	files     FileLedger
	events    *repository.ActiveEventStore
	boards    *repository.LeaderboardStore
	standings *repository.StandingsStore
	deduper   dedupe.Deduper
	strategy  scoring.Strategy

	// Publishing; nil publishers are disabled.
	leaderboardPub *publish.Publisher
	standingsPub   *publish.Publisher
	schedulePub    *publish.Publisher
	registryCh     channel.Channel

	// Configuration
	dropWeeks     int
	nameFallback  bool
	eventWindow   bool
	resultsDir    string
	ingestWorkers int
	registryPath  string
	registryLimit int
	now           func() time.Time

	closers []io.Closer

	mu        sync.Mutex
	listeners []func(loop string)

	// Logging
	logger logger.Logger
}

// New constructs a Service. Schedule, lap store, ledger and the three
// artifact stores are required.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		deduper:       dedupe.NewInMemoryDeduper(),
		strategy:      scoring.NewRelativePerformance(0),
		dropWeeks:     2,
		registryLimit: 100,
		now:           time.Now,
		logger:        logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = schedule.NewResolver()
	}

	var missing []string
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"schedule", s.schedules != nil},
		{"lap store", s.laps != nil},
		{"ledger", s.files != nil},
		{"event store", s.events != nil},
		{"leaderboard store", s.boards != nil},
		{"standings store", s.standings != nil},
	} {
		if !c.ok {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewError("service.new", model.ErrConfig, fmt.Errorf("%w: %v", ErrMissingComponent, missing))
	}
	return s, nil
}

// Schedules returns the schedule loader.
func (s *Service) Schedules() *schedule.Loader { return s.schedules }

// OnChange registers fn to be called with the loop name whenever a stage
// changes its output: a new active event, new laps, or a rewritten artifact.
func (s *Service) OnChange(fn func(loop string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(loop string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(loop)
	}
}

// Loops returns every pipeline stage in pipeline order.
func (s *Service) Loops() []Loop {
	return []Loop{
		{Name: LoopEvent, Tick: func(ctx context.Context) error { _, err := s.RefreshEvent(ctx); return err }},
		{Name: LoopIngest, Tick: func(ctx context.Context) error { _, err := s.IngestResults(ctx); return err }},
		{Name: LoopLeaderboard, Tick: func(ctx context.Context) error { _, err := s.RefreshLeaderboard(ctx); return err }},
		{Name: LoopStandings, Tick: func(ctx context.Context) error { _, _, err := s.RefreshStandings(ctx, ""); return err }},
		{Name: LoopPublishLeaderboard, Tick: func(ctx context.Context) error { _, err := s.PublishLeaderboard(ctx); return err }},
		{Name: LoopPublishStandings, Tick: func(ctx context.Context) error { _, err := s.PublishStandings(ctx); return err }},
		{Name: LoopPublishSchedule, Tick: func(ctx context.Context) error { _, err := s.PublishSchedule(ctx); return err }},
	}
}

// PollOnce runs every stage once in pipeline order. A failing stage does
// not stop the ones after it.
func (s *Service) PollOnce(ctx context.Context) error {
	var errs []error
	for _, l := range s.Loops() {
		if err := l.Tick(ctx); err != nil {
			s.logger.Warn(ctx, "stage failed", logger.String("loop", l.Name), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", l.Name, err))
		}
	}
	return errors.Join(errs...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	stats := types.Stats{
		ScoringStrategy: s.strategy.Name(),
		DropWeeks:       s.dropWeeks,
		DedupeSize:      s.deduper.Size(),
	}

	if sch := s.schedules.Schedule(); sch != nil {
		stats.Season = sch.SeasonID()
		stats.ScheduledEvents = len(sch.Keys())
		if points, err := s.resolver.PointEvents(ctx, sch); err == nil {
			stats.PointEvents = len(points)
		}
		if table, err := s.standings.Load(ctx, stats.Season); err == nil {
			stats.StandingsDrivers = len(table)
		}
	}

	if cur, ok, err := s.events.Load(ctx); err != nil {
		return stats, err
	} else if ok {
		stats.ActiveEvent = cur.EventID.String()
		stats.Override = cur.Override
		stats.LastUpdated = cur.LastUpdated
		if lb, _, err := s.boards.Get(ctx, cur.EventID); err == nil {
			stats.LeaderboardDrivers = len(lb)
		}
		n, err := s.laps.Count(ctx, cur.EventID)
		if err != nil {
			return stats, err
		}
		stats.StoredLaps = n
	}

	files, err := s.files.ProcessedFiles(ctx)
	if err != nil {
		return stats, err
	}
	stats.ProcessedFiles = len(files)
	return stats, nil
}

// Close releases the stores opened for the service.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
