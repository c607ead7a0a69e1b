package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/timeattack/internal/adapters/channel"
	"github.com/okian/timeattack/internal/adapters/lapstore"
	"github.com/okian/timeattack/internal/adapters/ledger"
	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/config"
	"github.com/okian/timeattack/internal/domain/dedupe"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/domain/scoring"
	"github.com/okian/timeattack/internal/publish"
	"github.com/okian/timeattack/pkg/logger"
)

// dryRunAuthor is the author id of messages posted to in-memory channels.
const dryRunAuthor = "dry-run"

// Open builds a Service from configuration, opening every store it names.
// Close releases them.
func Open(ctx context.Context, cfg *config.Config) (*Service, error) {
	const op = "service.open"
	log := logger.Get().Named("service")

	for _, dir := range []string{
		filepath.Dir(cfg.LapStorePath),
		cfg.LedgerDir,
		filepath.Dir(cfg.LeaderboardPath),
		cfg.StandingsDir,
		filepath.Dir(cfg.ActiveEventPath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.NewError(op, model.ErrConfig, err)
		}
	}

	loader, err := schedule.NewLoader(ctx, cfg.SchedulePath)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(cfg)
	strategy, err := scoring.New(cfg.ScoringStrategy,
		scoring.WithPositionPoints(cfg.PositionPoints),
		scoring.WithRelativeScale(cfg.RelativeScale),
	)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	laps, err := lapstore.Open(cfg.LapStorePath, lapstore.WithPageSize(cfg.LapPageSize))
	if err != nil {
		return fail(err)
	}
	closers = append(closers, laps)

	led, err := ledger.Open(cfg.LedgerDir)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, led)

	newChannel := func(id string) channel.Channel {
		if cfg.DryRun() {
			return channel.NewMemory(dryRunAuthor)
		}
		return channel.NewDiscord(cfg.DiscordToken, id,
			channel.WithBaseURL(cfg.DiscordAPIBase),
			channel.WithTimeout(cfg.NetworkTimeout))
	}
	newPublisher := func(id string) *publish.Publisher {
		if id == "" && !cfg.DryRun() {
			return nil
		}
		author := cfg.DiscordBotID
		if cfg.DryRun() {
			author = dryRunAuthor
		}
		return publish.New(newChannel(id),
			publish.WithSettleDelay(cfg.SettleDelay),
			publish.WithHistoryLimit(cfg.HistoryLimit),
			publish.WithAuthorID(author),
			publish.WithHints(led),
			publish.WithLogger(logger.Get().Named("publisher").With(logger.String("channel", id))),
		)
	}
	var registryCh channel.Channel
	if cfg.RegistryChannelID != "" || cfg.DryRun() {
		registryCh = newChannel(cfg.RegistryChannelID)
	}

	svc, err := New(
		WithSchedule(loader, resolver),
		WithLapStore(laps),
		WithFileLedger(led),
		WithStores(
			repository.NewActiveEventStore(cfg.ActiveEventPath),
			repository.NewLeaderboardStore(cfg.LeaderboardPath),
			repository.NewStandingsStore(cfg.StandingsDir),
		),
		WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
		WithStrategy(strategy),
		WithDropWeeks(cfg.DropWeeks),
		WithNameFallback(cfg.NameFallback),
		WithEventWindow(cfg.EventWindow),
		WithResultsDir(cfg.ResultsDir),
		WithIngestWorkers(cfg.IngestWorkers),
		WithRegistry(cfg.RegistryPath, registryCh, 0),
		WithPublishers(
			newPublisher(cfg.LeaderboardChannelID),
			newPublisher(cfg.StandingsChannelID),
			newPublisher(cfg.ScheduleChannelID),
		),
		WithClosers(closers...),
		WithLogger(log),
	)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", op, err))
	}
	log.Info(ctx, "service ready",
		logger.String("season", loader.Schedule().SeasonID()),
		logger.String("scoring", strategy.Name()),
		logger.Int("drop_weeks", cfg.DropWeeks),
		logger.Bool("dry_run", cfg.DryRun()))
	return svc, nil
}

// NewResolver builds the schedule resolver described by cfg.
func NewResolver(cfg *config.Config) *schedule.Resolver {
	return schedule.NewResolver(
		schedule.WithLocation(cfg.Location()),
		schedule.WithStartOffset(cfg.StartOffset),
		schedule.WithFallback(cfg.FallbackEvent),
		schedule.WithPointPrefix(cfg.PointEventPrefix),
	)
}
