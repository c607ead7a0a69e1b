package cli

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/timeattack/internal/app"
	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/simulate"
)

type simulateOptions struct {
	url     string
	drivers int
	files   int
	laps    int
	seed    uint64
	wait    time.Duration
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Feed synthetic results to a running service and verify its leaderboard",
		Long: `Writes generated result files for the active event into the results
directory of a running "timeattack serve" and polls its ops API until the
served leaderboard holds every simulated driver with the expected best lap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.drivers <= 0 || opts.files <= 0 || opts.laps <= 0 {
				return NewExitError(ExitCommandError, "--drivers, --files and --laps must be positive")
			}
			ctx := cmd.Context()
			cfg := rootOpts.Config
			base := opts.url
			if base == "" {
				base = baseURL(cfg.Addr)
			}

			id, err := simulate.NewClient(base, 0).ActiveEvent(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "active event", err)
			}
			loader, err := schedule.NewLoader(ctx, cfg.SchedulePath)
			if err != nil {
				return WrapExitError(ExitFailure, "load schedule", err)
			}
			ev, err := service.NewResolver(cfg).Event(ctx, loader.Schedule(), id.Key)
			if err != nil {
				return WrapExitError(ExitFailure, "resolve event", err)
			}

			stats, err := simulate.Run(ctx, &simulate.Config{
				BaseURL:       base,
				ResultsDir:    cfg.ResultsDir,
				Event:         ev,
				Drivers:       opts.drivers,
				Files:         opts.files,
				LapsPerDriver: opts.laps,
				Seed:          opts.seed,
				Wait:          opts.wait,
			})
			if stats != nil {
				text := fmt.Sprintf("%s: %d files, %d laps (%d legal), %d/%d drivers matched in %s\n",
					id, stats.FilesWritten, stats.LapsGenerated, stats.LegalLaps,
					stats.DriversMatched, stats.DriversExpected, stats.Duration.Round(time.Millisecond))
				if emitErr := emit(cmd.OutOrStdout(), rootOpts, stats, text); emitErr != nil {
					return emitErr
				}
			}
			if err != nil {
				return WrapExitError(ExitFailure, "simulate", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "ops API base URL (default derived from addr)")
	cmd.Flags().IntVar(&opts.drivers, "drivers", 20, "number of simulated drivers")
	cmd.Flags().IntVar(&opts.files, "files", 3, "number of result files")
	cmd.Flags().IntVar(&opts.laps, "laps", 5, "laps per driver per file")
	cmd.Flags().Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "generator seed")
	cmd.Flags().DurationVar(&opts.wait, "wait", 2*time.Minute, "how long to wait for the leaderboard")
	return cmd
}

// baseURL turns a listen address such as ":9080" into a dialable URL.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + strings.TrimPrefix(addr, "http://")
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
