package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/timeattack/internal/domain/leaderboard"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// RefreshLeaderboard rebuilds the active event's leaderboard from the lap
// store. An event missing from the schedule leaves the stored artifact
// untouched.
func (s *Service) RefreshLeaderboard(ctx context.Context) (bool, error) {
	active, err := s.ActiveEvent(ctx)
	if err != nil {
		return false, err
	}
	id := active.EventID

	event, err := s.eventFor(ctx, id)
	if err != nil {
		if id.Key == s.resolver.Fallback() && errors.Is(err, model.ErrConfig) {
			s.logger.Debug(ctx, "no scheduled event yet", logger.String("event", id.String()))
			return false, nil
		}
		s.logger.Warn(ctx, "event not in schedule, leaderboard untouched", logger.String("event", id.String()), logger.Error(err))
		return false, err
	}

	laps, err := s.laps.FetchLaps(ctx, id)
	if err != nil {
		return false, err
	}

	opts := []leaderboard.Option{leaderboard.WithNameFallback(s.nameFallback)}
	if s.eventWindow {
		opts = append(opts, leaderboard.WithWindow(event.Start, s.nextStart(ctx, event)))
	}
	lb, stats := leaderboard.Aggregate(id, laps, event, opts...)
	metrics.UpdateLapsDropped(stats.Dropped())
	if err := stats.IdentityErr(id); err != nil {
		s.logger.Warn(ctx, "laps without driver guid", logger.Error(err))
	}

	changed, err := s.boards.Save(ctx, id, lb)
	if err != nil {
		return false, err
	}
	metrics.UpdateLeaderboardDrivers(len(lb))
	if changed {
		s.logger.Info(ctx, "leaderboard updated",
			logger.String("event", id.String()),
			logger.Int("drivers", len(lb)),
			logger.Int("laps", stats.Kept))
		s.notify(LoopLeaderboard)
	}
	return changed, nil
}

// Leaderboard returns the stored leaderboard of id.
func (s *Service) Leaderboard(ctx context.Context, id model.EventID) (model.Leaderboard, bool, error) {
	return s.boards.Get(ctx, id)
}

// nextStart returns the start of the first event after ev, or the zero time.
func (s *Service) nextStart(ctx context.Context, ev model.Event) time.Time {
	events, err := s.resolver.Events(ctx, s.schedules.Schedule())
	if err != nil {
		return time.Time{}
	}
	var next time.Time
	for _, e := range events {
		if e.Start.After(ev.Start) && (next.IsZero() || e.Start.Before(next)) {
			next = e.Start
		}
	}
	return next
}
