package service

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/registry"
	"github.com/okian/timeattack/internal/publish"
	"github.com/okian/timeattack/pkg/logger"
)

// Publish target prefixes.
const (
	TargetLeaderboard = "leaderboard/"
	TargetStandings   = "standings/"
	TargetSchedule    = "schedule/"
)

// envelope is what a publish cycle fingerprints: the artifact plus the
// display names it is rendered with, so a renamed driver republishes.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Names json.RawMessage `json:"names,omitempty"`
}

// PublishLeaderboard syncs the active event's leaderboard message.
func (s *Service) PublishLeaderboard(ctx context.Context) (publish.Outcome, error) {
	if s.leaderboardPub == nil {
		return publish.OutcomeSkipped, nil
	}
	active, err := s.ActiveEvent(ctx)
	if err != nil {
		return "", err
	}
	id := active.EventID
	return s.leaderboardPub.Publish(ctx, publish.Artifact{
		Target: TargetLeaderboard + id.String(),
		Source: s.withNames(func(ctx context.Context) ([]byte, error) { return s.boards.Raw(ctx, id) }),
		Render: func(_ context.Context, raw []byte) (string, error) {
			var lb model.Leaderboard
			names, err := openEnvelope(raw, &lb)
			if err != nil {
				return "", err
			}
			return publish.Leaderboard(id, lb, names), nil
		},
	})
}

// PublishStandings syncs the season standings message.
func (s *Service) PublishStandings(ctx context.Context) (publish.Outcome, error) {
	if s.standingsPub == nil {
		return publish.OutcomeSkipped, nil
	}
	season, err := s.season()
	if err != nil {
		return "", err
	}
	return s.standingsPub.Publish(ctx, publish.Artifact{
		Target: TargetStandings + season,
		Source: s.withNames(func(ctx context.Context) ([]byte, error) { return s.standings.Raw(ctx, season) }),
		Render: func(_ context.Context, raw []byte) (string, error) {
			var table []model.StandingsEntry
			names, err := openEnvelope(raw, &table)
			if err != nil {
				return "", err
			}
			return publish.Standings(season, table, names), nil
		},
	})
}

// PublishSchedule syncs the season calendar message of point events.
func (s *Service) PublishSchedule(ctx context.Context) (publish.Outcome, error) {
	if s.schedulePub == nil {
		return publish.OutcomeSkipped, nil
	}
	season, err := s.season()
	if err != nil {
		return "", err
	}
	return s.schedulePub.Publish(ctx, publish.Artifact{
		Target: TargetSchedule + season,
		Source: func(ctx context.Context) ([]byte, error) {
			events, err := s.resolver.PointEvents(ctx, s.schedules.Schedule())
			if err != nil {
				return nil, err
			}
			return json.Marshal(events)
		},
		Render: func(_ context.Context, raw []byte) (string, error) {
			var events []model.Event
			if err := json.Unmarshal(raw, &events); err != nil {
				return "", model.NewError("service.render_schedule", model.ErrData, err)
			}
			return publish.Schedule(season, events), nil
		},
	})
}

func (s *Service) season() (string, error) {
	sch := s.schedules.Schedule()
	if sch == nil {
		return "", model.NewError("service.season", model.ErrConfig, ErrNoActiveEvent)
	}
	return sch.SeasonID(), nil
}

// withNames wraps an artifact source in an envelope carrying the registry.
func (s *Service) withNames(read func(ctx context.Context) ([]byte, error)) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		data, err := read(ctx)
		if err != nil {
			return nil, err
		}
		env := envelope{Data: data}
		if raw, reg := s.loadRegistry(ctx); reg.Len() > 0 {
			env.Names = raw
		}
		return json.Marshal(env)
	}
}

func openEnvelope(raw []byte, v any) (*registry.Registry, error) {
	const op = "service.render"
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, model.NewError(op, model.ErrData, err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return nil, model.NewError(op, model.ErrData, err)
	}
	names, err := registry.Decode(env.Names)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// loadRegistry reads the registry file. A missing or malformed file yields
// an empty registry.
func (s *Service) loadRegistry(ctx context.Context) ([]byte, *registry.Registry) {
	if s.registryPath == "" {
		return nil, registry.New(nil)
	}
	raw, err := os.ReadFile(s.registryPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "driver registry unreadable", logger.String("path", s.registryPath), logger.Error(err))
		}
		return nil, registry.New(nil)
	}
	reg, err := registry.Decode(raw)
	if err != nil {
		s.logger.Warn(ctx, "driver registry malformed, using raw names", logger.String("path", s.registryPath), logger.Error(err))
		return nil, registry.New(nil)
	}
	return raw, reg
}
