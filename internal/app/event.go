package service

import (
	"context"
	"fmt"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// RefreshEvent resolves the active event from the schedule and stores it.
// A manual override is left in place.
func (s *Service) RefreshEvent(ctx context.Context) (model.EventID, error) {
	cur, ok, err := s.events.Load(ctx)
	if err != nil {
		return model.EventID{}, err
	}
	if ok && cur.Override {
		metrics.UpdateActiveEvent(cur.EventID.String())
		return cur.EventID, nil
	}

	id, err := s.resolver.Resolve(ctx, s.schedules.Schedule(), s.now())
	if err != nil {
		return model.EventID{}, err
	}
	changed, err := s.events.Set(ctx, id, false)
	if err != nil {
		return model.EventID{}, err
	}
	if changed {
		s.logger.Info(ctx, "active event changed",
			logger.String("event", id.String()),
			logger.String("previous", cur.EventID.String()))
		s.notify(LoopEvent)
	}
	metrics.UpdateActiveEvent(id.String())
	return id, nil
}

// ActiveEvent returns the stored pointer, resolving it first when none is stored.
func (s *Service) ActiveEvent(ctx context.Context) (repository.ActiveEvent, error) {
	cur, ok, err := s.events.Load(ctx)
	if err != nil || ok {
		return cur, err
	}
	if _, err := s.RefreshEvent(ctx); err != nil {
		return repository.ActiveEvent{}, err
	}
	cur, ok, err = s.events.Load(ctx)
	if err != nil {
		return repository.ActiveEvent{}, err
	}
	if !ok {
		return repository.ActiveEvent{}, model.NewError("service.active_event", model.ErrData, ErrNoActiveEvent)
	}
	return cur, nil
}

// OverrideEvent pins raw ("season1#event3") as the active event until
// ClearOverride. The event must be in the schedule or be the fallback key.
func (s *Service) OverrideEvent(ctx context.Context, raw string) (model.EventID, error) {
	id, err := model.ParseEventID(raw)
	if err != nil {
		return model.EventID{}, err
	}
	if id.Key != s.resolver.Fallback() {
		if _, err := s.eventFor(ctx, id); err != nil {
			return model.EventID{}, err
		}
	} else if err := s.checkSeason(id.Season); err != nil {
		return model.EventID{}, err
	}
	if _, err := s.events.Set(ctx, id, true); err != nil {
		return model.EventID{}, err
	}
	s.logger.Info(ctx, "active event overridden", logger.String("event", id.String()))
	metrics.UpdateActiveEvent(id.String())
	s.notify(LoopEvent)
	return id, nil
}

// ClearOverride removes a manual override and resolves the event again.
func (s *Service) ClearOverride(ctx context.Context) (model.EventID, error) {
	cur, ok, err := s.events.Load(ctx)
	if err != nil {
		return model.EventID{}, err
	}
	if ok && cur.Override {
		if _, err := s.events.Set(ctx, cur.EventID, false); err != nil {
			return model.EventID{}, err
		}
		s.logger.Info(ctx, "event override cleared", logger.String("event", cur.EventID.String()))
	}
	return s.RefreshEvent(ctx)
}

// eventFor looks id up in the current schedule.
func (s *Service) eventFor(ctx context.Context, id model.EventID) (model.Event, error) {
	if err := s.checkSeason(id.Season); err != nil {
		return model.Event{}, err
	}
	return s.resolver.Event(ctx, s.schedules.Schedule(), id.Key)
}

func (s *Service) checkSeason(season string) error {
	const op = "service.check_season"
	sch := s.schedules.Schedule()
	if sch == nil {
		return model.NewError(op, model.ErrConfig, schedule.ErrEmptySchedule)
	}
	if season != sch.SeasonID() {
		return model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %s, schedule has %s", ErrSeasonMismatch, season, sch.SeasonID()))
	}
	return nil
}
