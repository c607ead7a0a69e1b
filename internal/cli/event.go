package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/timeattack/internal/adapters/repository"
	service "github.com/okian/timeattack/internal/app"
	"github.com/okian/timeattack/internal/publish"
)

// NewEventCommand creates the event command group.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Show or override the active event",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active event and its leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				cur, err := svc.ActiveEvent(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "active event", err)
				}
				text := describeEvent(cur)
				if lb, ok, err := svc.Leaderboard(ctx, cur.EventID); err == nil && ok {
					text += "\n" + publish.Leaderboard(cur.EventID, lb, nil)
				}
				return emit(cmd.OutOrStdout(), rootOpts, cur, text)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <event-id>",
		Short: "Pin the active event until cleared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				if _, err := svc.OverrideEvent(ctx, args[0]); err != nil {
					return WrapExitError(ExitCommandError, "override event", err)
				}
				return showEvent(ctx, cmd, rootOpts, svc)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the override and resolve from the schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				if _, err := svc.ClearOverride(ctx); err != nil {
					return WrapExitError(ExitFailure, "clear override", err)
				}
				return showEvent(ctx, cmd, rootOpts, svc)
			})
		},
	})
	return cmd
}

func showEvent(ctx context.Context, cmd *cobra.Command, opts *RootOptions, svc *service.Service) error {
	cur, err := svc.ActiveEvent(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "active event", err)
	}
	return emit(cmd.OutOrStdout(), opts, cur, describeEvent(cur))
}

func describeEvent(cur repository.ActiveEvent) string {
	var b strings.Builder
	b.WriteString(cur.EventID.String())
	if cur.Override {
		b.WriteString(" (override)")
	}
	if !cur.LastUpdated.IsZero() {
		fmt.Fprintf(&b, ", updated %s", cur.LastUpdated.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")
	return b.String()
}
