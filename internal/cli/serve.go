package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/timeattack/internal/adapters/http/api"
	"github.com/okian/timeattack/internal/adapters/http/swagger"
	service "github.com/okian/timeattack/internal/app"
	"github.com/okian/timeattack/internal/supervisor"
	"github.com/okian/timeattack/pkg/logger"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run every pipeline loop under supervision",
		Long: `Run the event, ingest, leaderboard, standings and publish loops on their
intervals, woken early by file changes, with the ops HTTP endpoint on the
configured address. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Get().Named("main")
	return withService(ctx, opts, func(ctx context.Context, svc *service.Service) error {
		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc).Register(ctx, mux)

		log.Info(ctx, "starting pipeline",
			logger.String("addr", opts.Config.Addr),
			logger.Bool("dry_run", opts.Config.DryRun()))
		if err := supervisor.Pipeline(opts.Config, svc, mux).Serve(ctx); err != nil {
			return WrapExitError(ExitFailure, "supervisor", err)
		}
		log.Info(context.WithoutCancel(ctx), "pipeline stopped")
		return nil
	})
}
