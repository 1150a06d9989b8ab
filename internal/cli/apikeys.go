package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planttracer/odb/internal/services"
)

func newMakeAPIKeyCmd(run servicesRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "make-api-key <email>",
		Short: "Issue a new API key for a user",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *services.Services, args []string) error {
			key, err := svc.APIKeys.MakeNewAPIKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		}),
	}
}
