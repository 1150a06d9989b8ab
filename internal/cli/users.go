package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
)

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newAddUserCmd(run servicesRunner) *cobra.Command {
	var name string
	var admin, demo, disabled bool

	cmd := &cobra.Command{
		Use:   "add-user <email>",
		Short: "Add a user",
		Long:  `Add a user. Emails are unique regardless of case.`,
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *services.Services, args []string) error {
			user, err := svc.Users.AddUser(cmd.Context(), models.User{
				Email:    args[0],
				FullName: name,
				Enabled:  boolFlag(!disabled),
				Demo:     boolFlag(demo),
				Admin:    boolFlag(admin),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.UserID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().BoolVar(&admin, "admin", false, "global administrator")
	cmd.Flags().BoolVar(&demo, "demo", false, "demo account")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the user disabled")
	return cmd
}

func newListUsersCmd(run servicesRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, svc *services.Services, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USER_ID\tEMAIL\tNAME\tENABLED\tADMIN\tCOURSES")
			for user, err := range svc.Users.ListUsers(cmd.Context()) {
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					user.UserID, user.Email, user.FullName, user.Enabled, user.Admin, len(user.Courses))
			}
			return w.Flush()
		}),
	}
}

func newDeleteUserCmd(run servicesRunner) *cobra.Command {
	var purgeMovies bool

	cmd := &cobra.Command{
		Use:   "delete-user <email>",
		Short: "Delete a user",
		Long: `Delete a user, their API keys and course memberships. A user who still
owns movies is only deleted with --purge-movies, which removes the movies too.`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, svc *services.Services, args []string) error {
			userID, err := userByEmail(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.Users.DeleteUser(cmd.Context(), userID, purgeMovies); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", userID)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&purgeMovies, "purge-movies", false, "also delete the user's movies and frames")
	return cmd
}
