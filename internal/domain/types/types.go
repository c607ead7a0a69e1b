// Package types contains the read-only views served by the ops API.
package types

import (
	"time"

	"github.com/okian/timeattack/internal/domain/model"
)

// Stats summarises the pipeline state for monitoring.
type Stats struct {
	ActiveEvent        string    `json:"active_event"`
	Override           bool      `json:"override"`
	LastUpdated        time.Time `json:"last_updated,omitempty"`
	Season             string    `json:"season"`
	ScheduledEvents    int       `json:"scheduled_events"`
	PointEvents        int       `json:"point_events"`
	StoredLaps         int       `json:"stored_laps"`
	LeaderboardDrivers int       `json:"leaderboard_drivers"`
	StandingsDrivers   int       `json:"standings_drivers"`
	ProcessedFiles     int       `json:"processed_files"`
	DedupeSize         int64     `json:"dedupe_size"`
	ScoringStrategy    string    `json:"scoring_strategy"`
	DropWeeks          int       `json:"drop_weeks"`
}

// LeaderboardView is one event's best-lap table.
type LeaderboardView struct {
	EventID string            `json:"event_id"`
	Entries model.Leaderboard `json:"entries"`
}

// StandingsView is one season's table.
type StandingsView struct {
	Season  string                 `json:"season"`
	Entries []model.StandingsEntry `json:"entries"`
}
