package simulate

import (
	"sort"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/results"
)

// Expected returns each driver's best legal lap, fastest first, computed
// directly from the generated files.
func Expected(files []results.File, ev model.Event) ([]Entry, int) {
	best := make(map[string]Entry)
	var order []string
	legal := 0
	for _, f := range files {
		if !ev.MatchesTrack(f.TrackName) {
			continue
		}
		for _, l := range f.Laps {
			if l.Cuts > 0 || l.LapTime <= 0 || !ev.AllowsCar(l.CarModel) {
				continue
			}
			legal++
			cur, ok := best[l.DriverGUID]
			if !ok {
				order = append(order, l.DriverGUID)
			}
			if !ok || l.LapTime < cur.LapMS {
				best[l.DriverGUID] = Entry{DriverGUID: l.DriverGUID, Driver: l.DriverName, LapMS: l.LapTime}
			}
		}
	}

	out := make([]Entry, 0, len(order))
	for _, guid := range order {
		out = append(out, best[guid])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LapMS < out[j].LapMS })
	return out, legal
}
