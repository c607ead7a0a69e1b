package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/timeattack/internal/app"
)

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the driver display-name registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Rebuild the registry from the registry channel history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), rootOpts, func(ctx context.Context, svc *service.Service) error {
				n, err := svc.ImportRegistry(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "import registry", err)
				}
				out := struct {
					Names int    `json:"names"`
					Path  string `json:"path"`
				}{n, rootOpts.Config.RegistryPath}
				return emit(cmd.OutOrStdout(), rootOpts, out,
					fmt.Sprintf("imported %d names into %s\n", n, rootOpts.Config.RegistryPath))
			})
		},
	})
	return cmd
}
