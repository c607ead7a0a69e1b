package simulate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/results"
	"github.com/okian/timeattack/pkg/logger"
)

// ErrNotConverged is returned when the leaderboard never matched in time.
var ErrNotConverged = errors.New("leaderboard did not converge")

// Run executes the complete simulation.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("event", cfg.Event.ID.String()),
		logger.String("track", cfg.Event.Track),
		logger.Int("drivers", cfg.Drivers),
		logger.Int("files", cfg.Files),
		logger.Int("lapsPerDriver", cfg.LapsPerDriver),
		logger.Int64("seed", int64(cfg.Seed)))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate result files and the expected leaderboard
	files, _ := Generate(cfg)
	expected, legal := Expected(files, cfg.Event)
	for _, f := range files {
		stats.LapsGenerated += len(f.Laps)
	}
	stats.LegalLaps = legal
	stats.DriversExpected = len(expected)

	// Step 3: Drop them into the results directory
	if err := writeFiles(ctx, cfg.ResultsDir, files, stats); err != nil {
		return stats, fmt.Errorf("writing result files failed: %w", err)
	}

	// Step 4: Wait for the served leaderboard to match
	err := waitForLeaderboard(ctx, cfg, client, expected, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("filesWritten", stats.FilesWritten),
		logger.Int("lapsGenerated", stats.LapsGenerated),
		logger.Int("legalLaps", stats.LegalLaps),
		logger.Int("driversExpected", stats.DriversExpected),
		logger.Int("driversMatched", stats.DriversMatched),
		logger.Int("polls", stats.Polls),
		logger.Duration("duration", stats.Duration))
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Wait <= 0 {
		cfg.Wait = defaultWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
}

// writeFiles writes each file atomically so the ingester never reads a
// partial file.
func writeFiles(ctx context.Context, dir string, files []results.File, stats *Stats) error {
	batch := uuid.NewString()
	for i, f := range files {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to marshal file %d: %w", i, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("sim-%s-%03d.json", batch, i+1))
		if err := repository.WriteFileAtomic(name, data, filePermission); err != nil {
			return err
		}
		stats.FilesWritten++
		logger.Get().Debug(ctx, "result file written", logger.String("file", name), logger.String("session", f.String()))
	}
	return nil
}

func waitForLeaderboard(ctx context.Context, cfg *Config, client *Client, expected []Entry, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var last error
	for {
		stats.Polls++
		board, err := client.Leaderboard(ctx, cfg.Event.ID)
		if err == nil {
			stats.DriversMatched, err = Verify(expected, board)
			if err == nil {
				return nil
			}
		}
		// Keep the last real mismatch when the deadline cuts a request short.
		if last == nil || ctx.Err() == nil {
			last = err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w after %s: %w", ErrNotConverged, cfg.Wait, last)
		case <-ticker.C:
		}
	}
}
