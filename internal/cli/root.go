// Package cli implements the timeattack command tree.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/okian/timeattack/internal/config"
	"github.com/okian/timeattack/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Output     string // "text" | "json"

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"text", "json"} //nolint:gochecknoglobals // flag vocabulary

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "timeattack",
		Short: "Time-attack league pipeline",
		Long: `Runs the time-attack league pipeline: resolves the active event from the
season schedule, ingests race result files, aggregates leaderboards and
standings, and keeps one live message per artifact in the league channels.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			cfg, err := config.Load(cmd.Context(), opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return WrapExitError(ExitCommandError, "init logger", err)
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return WrapExitError(ExitCommandError, "log level", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $"+config.EnvConfig+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (text|json)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPollCommand(opts))
	cmd.AddCommand(NewStandingsCommand(opts))
	cmd.AddCommand(NewEventCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}
