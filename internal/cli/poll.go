package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/timeattack/internal/app"
)

// NewPollCommand creates the poll command.
func NewPollCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one cycle of every loop in pipeline order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				pollErr := svc.PollOnce(ctx)
				stats, err := svc.GetStats(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "stats", err)
				}
				text := fmt.Sprintf("event %s: %d laps, %d drivers; %s: %d drivers in standings\n",
					orNone(stats.ActiveEvent), stats.StoredLaps, stats.LeaderboardDrivers,
					orNone(stats.Season), stats.StandingsDrivers)
				if err := emit(cmd.OutOrStdout(), rootOpts, stats, text); err != nil {
					return err
				}
				if pollErr != nil {
					return WrapExitError(ExitFailure, "poll", pollErr)
				}
				return nil
			})
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
