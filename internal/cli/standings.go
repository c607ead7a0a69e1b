package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/timeattack/internal/app"
	"github.com/okian/timeattack/internal/domain/types"
	"github.com/okian/timeattack/internal/publish"
)

// NewStandingsCommand creates the standings command group.
func NewStandingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Inspect or rebuild season standings",
	}
	cmd.AddCommand(newStandingsRecomputeCommand(rootOpts))
	cmd.AddCommand(newStandingsShowCommand(rootOpts))
	return cmd
}

func newStandingsRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	var season string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute standings from the stored leaderboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				if _, _, err := svc.RefreshStandings(ctx, season); err != nil {
					return WrapExitError(ExitFailure, "recompute standings", err)
				}
				return printStandings(ctx, cmd, rootOpts, svc, season)
			})
		},
	}
	cmd.Flags().StringVar(&season, "season", "", "season id, e.g. season3 (default: the schedule's season)")
	return cmd
}

func newStandingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	var season string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored standings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				return printStandings(ctx, cmd, rootOpts, svc, season)
			})
		},
	}
	cmd.Flags().StringVar(&season, "season", "", "season id, e.g. season3 (default: the schedule's season)")
	return cmd
}

func printStandings(ctx context.Context, cmd *cobra.Command, opts *RootOptions, svc *service.Service, season string) error {
	season, table, _, err := svc.Standings(ctx, season)
	if err != nil {
		return WrapExitError(ExitFailure, "read standings", err)
	}
	return emit(cmd.OutOrStdout(), opts, types.StandingsView{Season: season, Entries: table},
		publish.Standings(season, table, nil))
}
