// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat koanf keys so env vars map one to one (TIMEATTACK_DROP_WEEKS -> drop_weeks).
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validate runs struct tags through go-playground/validator.
package config

import (
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Schedule resolution.
	SchedulePath     string        `koanf:"schedule_path" validate:"required"`
	Timezone         string        `koanf:"timezone" validate:"required,timezone"`
	StartOffset      time.Duration `koanf:"start_offset" validate:"gte=0"`
	FallbackEvent    string        `koanf:"fallback_event" validate:"required"`
	PointEventPrefix string        `koanf:"point_event_prefix" validate:"required,alphanum"`

	// Standings.
	DropWeeks       int       `koanf:"drop_weeks" validate:"gte=0"`
	ScoringStrategy string    `koanf:"scoring_strategy" validate:"oneof=relative position"`
	PositionPoints  []float64 `koanf:"position_points" validate:"dive,gte=0"`
	RelativeScale   float64   `koanf:"relative_scale" validate:"gt=0"`

	// NameFallback keys laps without a driver GUID by display name.
	NameFallback bool `koanf:"name_fallback"`

	// EventWindow only counts laps uploaded between an event's start and the next one's.
	EventWindow bool `koanf:"event_window"`

	// Files and stores.
	ResultsDir      string `koanf:"results_dir" validate:"required"`
	LapStorePath    string `koanf:"lap_store_path" validate:"required"`
	LedgerDir       string `koanf:"ledger_dir" validate:"required"`
	LeaderboardPath string `koanf:"leaderboard_path" validate:"required"`
	StandingsDir    string `koanf:"standings_dir" validate:"required"`
	ActiveEventPath string `koanf:"active_event_path" validate:"required"`
	RegistryPath    string `koanf:"registry_path" validate:"required"`

	// Loop intervals.
	EventInterval       time.Duration `koanf:"event_interval" validate:"gt=0"`
	IngestInterval      time.Duration `koanf:"ingest_interval" validate:"gt=0"`
	LeaderboardInterval time.Duration `koanf:"leaderboard_interval" validate:"gt=0"`
	StandingsInterval   time.Duration `koanf:"standings_interval" validate:"gt=0"`
	PublishInterval     time.Duration `koanf:"publish_interval" validate:"gt=0"`
	TickTimeout         time.Duration `koanf:"tick_timeout" validate:"gt=0"`

	// Publishing.
	SettleDelay    time.Duration `koanf:"settle_delay" validate:"gte=0"`
	HistoryLimit   int           `koanf:"history_limit" validate:"gt=0"`
	NetworkTimeout time.Duration `koanf:"network_timeout" validate:"gt=0"`

	// LapPageSize bounds one lap store page.
	LapPageSize int `koanf:"lap_page_size" validate:"gt=0"`

	// IngestWorkers decodes result files concurrently; 0 uses one per CPU.
	IngestWorkers int `koanf:"ingest_workers" validate:"gte=0"`

	// DedupeSize caps the ingestion lap-key cache; -1 means unbounded.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=-1"`

	// Discord. An empty token publishes to an in-memory channel (dry run).
	DiscordToken         string `koanf:"discord_token"`
	DiscordAPIBase       string `koanf:"discord_api_base" validate:"required,url"`
	DiscordBotID         string `koanf:"discord_bot_id"`
	LeaderboardChannelID string `koanf:"leaderboard_channel_id" validate:"required_with=DiscordToken"`
	StandingsChannelID   string `koanf:"standings_channel_id" validate:"required_with=DiscordToken"`
	ScheduleChannelID    string `koanf:"schedule_channel_id"`
	RegistryChannelID    string `koanf:"registry_channel_id"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		SchedulePath:        "schedule.yaml",
		Timezone:            "America/Chicago",
		FallbackEvent:       "preseason",
		PointEventPrefix:    "event",
		DropWeeks:           2,
		ScoringStrategy:     "relative",
		PositionPoints:      []float64{10, 7, 5, 3, 2, 1},
		RelativeScale:       101,
		ResultsDir:          "results",
		LapStorePath:        "data/laps.db",
		LedgerDir:           "data/ledger",
		LeaderboardPath:     "data/leaderboard.json",
		StandingsDir:        "data/standings",
		ActiveEventPath:     "data/active_event.json",
		RegistryPath:        "data/names.json",
		EventInterval:       time.Minute,
		IngestInterval:      30 * time.Second,
		LeaderboardInterval: 30 * time.Second,
		StandingsInterval:   5 * time.Minute,
		PublishInterval:     time.Minute,
		TickTimeout:         2 * time.Minute,
		SettleDelay:         2 * time.Second,
		HistoryLimit:        50,
		NetworkTimeout:      15 * time.Second,
		LapPageSize:         500,
		DedupeSize:          50_000,
		IngestWorkers:       4,
		DiscordAPIBase:      "https://discord.com/api/v10",
	}
}

// DryRun reports whether publishing goes to an in-memory channel.
func (c *Config) DryRun() bool { return c.DiscordToken == "" }

// Location returns the schedule time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
