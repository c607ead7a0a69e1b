// Package standings rolls event leaderboards into season totals under a
// drop-week policy.
package standings

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/scoring"
)

// Source returns the published leaderboard of an event. ok is false when
// nothing has been published for it yet.
type Source interface {
	Get(ctx context.Context, id model.EventID) (lb model.Leaderboard, ok bool, err error)
}

type driver struct {
	guid   string
	name   string
	scores []model.EventScore
}

// Counted returns how many event scores contribute to a season total.
func Counted(totalEvents, dropWeeks int) int {
	if dropWeeks < 0 {
		dropWeeks = 0
	}
	if n := totalEvents - dropWeeks; n > 0 {
		return n
	}
	return 0
}

// Compute rebuilds the standings of a season from scratch. events must be
// the point-bearing events in point order; their 1-based position is the
// event index. Events without a published leaderboard contribute nothing.
func Compute(ctx context.Context, events []model.Event, src Source, strategy scoring.Strategy, dropWeeks int) ([]model.StandingsEntry, error) {
	counted := Counted(len(events), dropWeeks)

	drivers := make(map[string]*driver)
	var order []*driver
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("standings: %w", err)
		}
		lb, ok, err := src.Get(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("standings: load %s: %w", ev.ID, err)
		}
		if !ok || len(lb) == 0 {
			continue
		}
		points := strategy.Score(lb)
		for _, e := range lb {
			key := e.Identity()
			pts, scored := points[key]
			if !scored {
				continue
			}
			d, seen := drivers[key]
			if !seen {
				d = &driver{guid: e.DriverGUID}
				drivers[key] = d
				order = append(order, d)
			}
			d.name = e.Driver
			d.scores = append(d.scores, model.EventScore{EventIndex: i + 1, EventID: ev.ID.String(), Points: pts})
		}
	}

	out := make([]model.StandingsEntry, 0, len(order))
	for _, d := range order {
		out = append(out, d.entry(counted))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPoints > out[j].TotalPoints
	})
	return out, nil
}

func (d *driver) entry(counted int) model.StandingsEntry {
	ranked := make([]model.EventScore, len(d.scores))
	copy(ranked, d.scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})

	keep := min(counted, len(ranked))
	kept := append([]model.EventScore{}, ranked[:keep]...)
	dropped := append([]model.EventScore{}, ranked[keep:]...)

	var total float64
	for _, s := range kept {
		total += s.Points
	}
	return model.StandingsEntry{
		Driver:      d.name,
		DriverGUID:  d.guid,
		TotalPoints: scoring.Round2(total),
		Kept:        kept,
		Dropped:     dropped,
		Drops:       len(dropped),
		TotalEvents: len(ranked),
	}
}
