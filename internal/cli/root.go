// Package cli implements odbutil, the administration command line for the
// object store.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planttracer/odb/internal/config"
	"github.com/planttracer/odb/internal/database"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/types"
)

// Version is reported by the version command.
var Version = "1.0.0"

// OpenFunc connects the repositories for one command run.
type OpenFunc func(ctx context.Context, envFile string) (*services.Services, error)

// OpenFromEnv loads the configuration, optionally from envFile, and opens
// the configured store.
func OpenFromEnv(ctx context.Context, envFile string) (*services.Services, error) {
	cfg, err := config.LoadWithEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	st, err := database.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return services.New(st, logger), nil
}

// NewRootCmd builds the odbutil command tree over open.
func NewRootCmd(open OpenFunc) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "odbutil",
		Short: "Administer the Plant Tracer object store",
		Long: `odbutil creates the store tables and manages users, courses and API keys
in the store selected by STORE_TYPE and TABLE_PREFIX.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "f", "", "path to a .env file to load first")

	// withServices opens the store around fn.
	withServices := func(fn func(cmd *cobra.Command, svc *services.Services, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context(), envFile)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer svc.Store().Close()
			return fn(cmd, svc, args)
		}
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "odbutil version %s\n", Version)
			},
		},
		&cobra.Command{
			Use:   "create-tables",
			Short: "Create any missing tables and indexes",
			Args:  cobra.NoArgs,
			RunE: withServices(func(cmd *cobra.Command, svc *services.Services, _ []string) error {
				if err := services.EnsureTables(cmd.Context(), svc.Store()); err != nil {
					return err
				}
				for _, spec := range services.TableSpecs() {
					fmt.Fprintln(cmd.OutOrStdout(), svc.Store().PhysicalName(spec.Name))
				}
				return nil
			}),
		},
		newAddUserCmd(withServices),
		newListUsersCmd(withServices),
		newDeleteUserCmd(withServices),
		newAddCourseCmd(withServices),
		newEnrollCmd(withServices),
		newMakeAPIKeyCmd(withServices),
		newLogsCmd(withServices),
	)
	return rootCmd
}

type servicesRunner = func(fn func(cmd *cobra.Command, svc *services.Services, args []string) error) func(*cobra.Command, []string) error

// Execute runs odbutil against the configured store.
func Execute() {
	if err := NewRootCmd(OpenFromEnv).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// userByEmail resolves email or fails with types.ErrUnknownUser.
func userByEmail(ctx context.Context, svc *services.Services, email string) (string, error) {
	user, err := svc.Users.GetUser(ctx, services.UserLookup{Email: email})
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownUser, email)
	}
	return user.UserID, nil
}
