// Package simulate drives a running service end to end: it writes
// synthetic result files for the active event, then polls the ops API until
// the served leaderboard shows every simulated driver with the expected
// best lap.
package simulate

import (
	"time"

	"github.com/okian/timeattack/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the ops API
	ResultsDir    string        // Directory the service ingests from
	Event         model.Event   // Target event; laps use its track and cars
	Drivers       int           // Number of simulated drivers
	Files         int           // Number of result files to write
	LapsPerDriver int           // Laps per driver per file
	Seed          uint64        // Generator seed; equal seeds give equal files
	Timeout       time.Duration // HTTP request timeout
	Wait          time.Duration // How long to wait for the leaderboard
	PollInterval  time.Duration // Leaderboard polling interval
}

// Entry is one simulated driver's expected best lap.
type Entry struct {
	DriverGUID string
	Driver     string
	LapMS      int64
}

// Stats holds run statistics.
type Stats struct {
	FilesWritten    int
	LapsGenerated   int
	LegalLaps       int
	DriversExpected int
	DriversMatched  int
	Polls           int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
