// Package leaderboard reduces raw laps for one event into a best-lap table.
package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/timeattack/internal/domain/model"
)

// Stats counts what happened to each input lap.
type Stats struct {
	Input        int
	Kept         int // laps that passed every filter
	OtherEvent   int
	Cut          int
	WrongTrack   int
	WrongCar     int
	BadTime      int
	OutOfWindow  int
	NoIdentity   int // dropped: no GUID and name fallback disabled
	NameFallback int // kept under display-name identity
}

// Dropped returns the per-reason drop counts with non-zero values.
func (s Stats) Dropped() map[string]int {
	out := make(map[string]int)
	for reason, n := range map[string]int{
		"event":    s.OtherEvent,
		"cuts":     s.Cut,
		"track":    s.WrongTrack,
		"car":      s.WrongCar,
		"lap_time": s.BadTime,
		"window":   s.OutOfWindow,
		"identity": s.NoIdentity,
	} {
		if n > 0 {
			out[reason] = n
		}
	}
	return out
}

// IdentityErr reports laps that carried no stable driver identity.
func (s Stats) IdentityErr(id model.EventID) error {
	if s.NoIdentity == 0 && s.NameFallback == 0 {
		return nil
	}
	return model.NewError("leaderboard.aggregate", model.ErrIdentity,
		fmt.Errorf("%s: %d laps without driver guid dropped, %d keyed by name", id, s.NoIdentity, s.NameFallback))
}

type settings struct {
	nameFallback bool
	from, until  time.Time
}

// Option applies a configuration option to Aggregate.
type Option func(*settings)

// WithNameFallback keys laps without a GUID by display name instead of dropping them.
func WithNameFallback(enabled bool) Option {
	return func(s *settings) {
		s.nameFallback = enabled
	}
}

// WithWindow drops laps uploaded outside [from, until). Zero bounds are open.
func WithWindow(from, until time.Time) Option {
	return func(s *settings) {
		s.from, s.until = from, until
	}
}

type best struct {
	lap   model.LapRecord
	order int
}

// Aggregate keeps each driver's fastest legal lap and orders the result by
// lap time, breaking exact ties by upload order. The same input always
// yields the same output.
func Aggregate(id model.EventID, laps []model.LapRecord, event model.Event, opts ...Option) (model.Leaderboard, Stats) {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	stats := Stats{Input: len(laps)}
	bests := make(map[string]*best)
	for i, lap := range laps {
		switch {
		case !lap.EventID.IsZero() && lap.EventID != id:
			stats.OtherEvent++
			continue
		case lap.Cuts > 0:
			stats.Cut++
			continue
		case lap.LapTimeMS <= 0:
			stats.BadTime++
			continue
		case !event.MatchesTrack(lap.TrackName):
			stats.WrongTrack++
			continue
		case !event.AllowsCar(lap.CarModel):
			stats.WrongCar++
			continue
		case !cfg.from.IsZero() && !lap.UploadedAt.IsZero() && lap.UploadedAt.Before(cfg.from),
			!cfg.until.IsZero() && !lap.UploadedAt.IsZero() && !lap.UploadedAt.Before(cfg.until):
			stats.OutOfWindow++
			continue
		}

		key := strings.TrimSpace(lap.DriverGUID)
		if key == "" {
			name := strings.TrimSpace(lap.DriverName)
			if !cfg.nameFallback || name == "" {
				stats.NoIdentity++
				continue
			}
			stats.NameFallback++
			key = "name:" + name
		}
		stats.Kept++

		cur, ok := bests[key]
		if !ok {
			bests[key] = &best{lap: lap, order: i}
			continue
		}
		if lap.LapTimeMS < cur.lap.LapTimeMS ||
			(lap.LapTimeMS == cur.lap.LapTimeMS && uploadedBefore(lap, i, cur.lap, cur.order)) {
			cur.lap, cur.order = lap, i
		}
	}

	rows := make([]*best, 0, len(bests))
	for _, b := range bests {
		rows = append(rows, b)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.lap.LapTimeMS != b.lap.LapTimeMS {
			return a.lap.LapTimeMS < b.lap.LapTimeMS
		}
		return uploadedBefore(a.lap, a.order, b.lap, b.order)
	})

	lb := make(model.Leaderboard, len(rows))
	for i, r := range rows {
		lb[i] = model.LeaderboardEntry{
			Driver:     displayName(r.lap),
			DriverGUID: strings.TrimSpace(r.lap.DriverGUID),
			Car:        r.lap.CarModel,
			LapMS:      r.lap.LapTimeMS,
			LapTime:    model.FormatLapTime(r.lap.LapTimeMS),
		}
	}
	return lb, stats
}

// uploadedBefore orders by store sequence, then by position in the input.
func uploadedBefore(a model.LapRecord, ai int, b model.LapRecord, bi int) bool {
	if a.UploadSeq != b.UploadSeq {
		return a.UploadSeq < b.UploadSeq
	}
	return ai < bi
}

func displayName(l model.LapRecord) string {
	if name := strings.TrimSpace(l.DriverName); name != "" {
		return name
	}
	return strings.TrimSpace(l.DriverGUID)
}
