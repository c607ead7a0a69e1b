package service

import (
	"context"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/domain/standings"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// RefreshStandings recomputes the season table from the stored
// leaderboards of every point event. An empty season means the schedule's.
func (s *Service) RefreshStandings(ctx context.Context, season string) ([]model.StandingsEntry, bool, error) {
	sch := s.schedules.Schedule()
	if sch == nil {
		return nil, false, model.NewError("service.refresh_standings", model.ErrConfig, schedule.ErrEmptySchedule)
	}
	if season == "" {
		season = sch.SeasonID()
	}
	if err := s.checkSeason(season); err != nil {
		return nil, false, err
	}

	points, err := s.resolver.PointEvents(ctx, sch)
	if err != nil {
		return nil, false, err
	}
	table, err := standings.Compute(ctx, points, s.boards, s.strategy, s.dropWeeks)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.standings.Save(ctx, season, table)
	if err != nil {
		return nil, false, err
	}
	metrics.UpdateStandingsDrivers(len(table))
	if changed {
		s.logger.Info(ctx, "standings updated",
			logger.String("season", season),
			logger.String("strategy", s.strategy.Name()),
			logger.Int("drivers", len(table)),
			logger.Int("events", len(points)))
		s.notify(LoopStandings)
	}
	return table, changed, nil
}

// Standings returns the stored table of season, or of the schedule's season
// when empty. ok is false when no table is stored for the season.
func (s *Service) Standings(ctx context.Context, season string) (string, []model.StandingsEntry, bool, error) {
	if season == "" {
		sch := s.schedules.Schedule()
		if sch == nil {
			return "", nil, false, model.NewError("service.standings", model.ErrConfig, schedule.ErrEmptySchedule)
		}
		season = sch.SeasonID()
	}
	if _, err := (model.EventID{Season: season}).SeasonNumber(); err != nil {
		return "", nil, false, model.NewError("service.standings", model.ErrConfig, err)
	}
	table, ok, err := s.standings.Get(ctx, season)
	return season, table, ok, err
}
