package model

import "fmt"

// LeaderboardEntry is a driver's best legal lap for one event.
type LeaderboardEntry struct {
	Driver     string `json:"driver"`
	DriverGUID string `json:"driver_guid,omitempty"`
	Car        string `json:"car"`
	LapMS      int64  `json:"lap_ms"`
	LapTime    string `json:"lap_time"`
}

// Identity returns the key used for scoring. Entries built without a GUID
// fall back to a name-scoped key so they never collide with real GUIDs.
func (e LeaderboardEntry) Identity() string {
	if e.DriverGUID != "" {
		return e.DriverGUID
	}
	return "name:" + e.Driver
}

// Leaderboard is ordered ascending by LapMS.
type Leaderboard []LeaderboardEntry

// Winner returns the fastest entry.
func (lb Leaderboard) Winner() (LeaderboardEntry, bool) {
	if len(lb) == 0 {
		return LeaderboardEntry{}, false
	}
	return lb[0], true
}

// Equal reports structural equality.
func (lb Leaderboard) Equal(other Leaderboard) bool {
	if len(lb) != len(other) {
		return false
	}
	for i := range lb {
		if lb[i] != other[i] {
			return false
		}
	}
	return true
}

// EventScore is the points a driver earned at one event.
type EventScore struct {
	EventIndex int     `json:"event_index"`
	EventID    string  `json:"event_id"`
	Points     float64 `json:"points"`
}

// StandingsEntry is a driver's season total after drop weeks.
type StandingsEntry struct {
	Driver      string       `json:"driver"`
	DriverGUID  string       `json:"driver_guid,omitempty"`
	TotalPoints float64      `json:"total_points"`
	Kept        []EventScore `json:"kept_events"`
	Dropped     []EventScore `json:"dropped_events"`
	Drops       int          `json:"drops"`
	TotalEvents int          `json:"total_events"`
}

// FormatLapTime renders milliseconds as m:ss.mmm.
func FormatLapTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60_000
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}
