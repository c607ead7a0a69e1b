package schedule

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
)

// Default resolver configuration constants.
const (
	defaultTimezone    = "America/Chicago"
	defaultFallback    = "preseason"
	defaultPointPrefix = "event"
)

// Resolver turns a schedule into events and picks the active one.
type Resolver struct {
	location    *time.Location
	offset      time.Duration
	fallback    string
	pointPrefix string
	pointKey    *regexp.Regexp
	logger      logger.Logger
}

// NewResolver creates a resolver. The zone defaults to America/Chicago and
// falls back to UTC when the tz database is unavailable.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fallback:    defaultFallback,
		pointPrefix: defaultPointPrefix,
		logger:      logger.Get().Named("schedule"),
	}
	if loc, err := time.LoadLocation(defaultTimezone); err == nil {
		r.location = loc
	} else {
		r.location = time.UTC
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pointKey = regexp.MustCompile(`^` + regexp.QuoteMeta(r.pointPrefix) + `\d+$`)
	return r
}

// Fallback returns the event key used before the first event starts.
func (r *Resolver) Fallback() string { return r.fallback }

// IsPointKey reports whether key names a point-bearing event.
func (r *Resolver) IsPointKey(key string) bool { return r.pointKey.MatchString(key) }

// Events returns every schedule entry with a parseable start. Entries that
// fail to parse are skipped with a warning.
func (r *Resolver) Events(ctx context.Context, s *Schedule) ([]model.Event, error) {
	const op = "schedule.events"
	if s == nil {
		return nil, model.NewError(op, model.ErrConfig, ErrEmptySchedule)
	}
	for key, err := range s.Invalid() {
		r.logger.Warn(ctx, "skipping schedule entry", logger.String("event", key), logger.Error(err))
	}
	events := make([]model.Event, 0, len(s.keys))
	for _, key := range s.keys {
		ev, err := r.build(s, key)
		if err != nil {
			r.logger.Warn(ctx, "skipping schedule entry", logger.String("event", key), logger.Error(err))
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, model.NewError(op, model.ErrConfig, ErrEmptySchedule)
	}
	return events, nil
}

// Event looks up a single event by key.
func (r *Resolver) Event(_ context.Context, s *Schedule, key string) (model.Event, error) {
	const op = "schedule.event"
	if s == nil {
		return model.Event{}, model.NewError(op, model.ErrConfig, ErrEmptySchedule)
	}
	if _, ok := s.defs[key]; !ok {
		if err, bad := s.invalid[key]; bad {
			return model.Event{}, model.NewError(op, model.ErrConfig, err)
		}
		return model.Event{}, model.NewError(op, model.ErrConfig, fmt.Errorf("%w: %s", ErrUnknownEvent, key))
	}
	ev, err := r.build(s, key)
	if err != nil {
		return model.Event{}, model.NewError(op, model.ErrConfig, err)
	}
	return ev, nil
}

// Resolve returns the event with the latest start at or before now. When no
// event has started yet the fallback key is returned.
func (r *Resolver) Resolve(ctx context.Context, s *Schedule, now time.Time) (model.EventID, error) {
	events, err := r.Events(ctx, s)
	if err != nil {
		return model.EventID{}, err
	}
	var (
		active model.Event
		found  bool
	)
	for _, ev := range events {
		if ev.Start.After(now) {
			continue
		}
		if !found || ev.Start.After(active.Start) || (ev.Start.Equal(active.Start) && orderLess(active, ev)) {
			active, found = ev, true
		}
	}
	if !found {
		return model.NewEventID(s.Season, r.fallback), nil
	}
	return active.ID, nil
}

// PointEvents returns point-bearing events ordered by start, then ordering key.
func (r *Resolver) PointEvents(ctx context.Context, s *Schedule) ([]model.Event, error) {
	events, err := r.Events(ctx, s)
	if err != nil {
		return nil, err
	}
	points := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Points {
			points = append(points, ev)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].Start.Equal(points[j].Start) {
			return points[i].Start.Before(points[j].Start)
		}
		return orderLess(points[i], points[j])
	})
	return points, nil
}

func (r *Resolver) build(s *Schedule, key string) (model.Event, error) {
	def := s.defs[key]
	day, err := time.ParseInLocation(dateLayout, def.StartDate, r.location)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	ev := model.Event{
		ID:          model.NewEventID(s.Season, key),
		Start:       day.Add(r.offset),
		Track:       def.Track,
		TrackConfig: def.TrackConfig,
		Cars:        append([]string(nil), def.Cars...),
		Points:      r.IsPointKey(key),
	}
	if def.Order != nil {
		ev.Order, ev.HasOrder = *def.Order, true
	}
	return ev, nil
}

// orderLess is a total order on declared ordering keys. Events without an
// explicit order rank below those with one; explicit orders compare by value;
// remaining ties fall back to natural key order (event9 < event10).
func orderLess(a, b model.Event) bool {
	if a.HasOrder != b.HasOrder {
		return b.HasOrder
	}
	if a.HasOrder && a.Order != b.Order {
		return a.Order < b.Order
	}
	return naturalCompare(a.ID.Key, b.ID.Key) < 0
}
