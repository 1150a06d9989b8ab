package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/planttracer/odb/internal/services"
)

func newLogsCmd(run servicesRunner) *cobra.Command {
	var q services.LogQuery
	var asEmail string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show audit log entries",
		Long: `Show audit log entries. With --as the results are limited to what that
user may see.`,
		Args: cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, svc *services.Services, _ []string) error {
			if asEmail != "" {
				userID, err := userByEmail(cmd.Context(), svc, asEmail)
				if err != nil {
					return err
				}
				q.UserID = userID
				q.Security = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER_ID\tCOURSE_ID\tMOVIE_ID\tIPADDR\tMESSAGE")
			for entry, err := range svc.Logs.GetLogs(cmd.Context(), q) {
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					time.Unix(entry.TimeT, 0).UTC().Format(time.RFC3339),
					entry.UserID, entry.CourseID, entry.MovieID, entry.IPAddr, entry.Message)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&asEmail, "as", "", "apply the visibility rules of this user")
	cmd.Flags().Int64Var(&q.StartTime, "start", 0, "earliest time_t")
	cmd.Flags().Int64Var(&q.EndTime, "end", 0, "latest time_t")
	cmd.Flags().StringVar(&q.CourseID, "course-id", "", "course ID")
	cmd.Flags().StringVar(&q.CourseKey, "course-key", "", "course key")
	cmd.Flags().StringVar(&q.MovieID, "movie-id", "", "movie ID")
	cmd.Flags().StringVar(&q.LogUserID, "user-id", "", "user the entries are about")
	cmd.Flags().StringVar(&q.IPAddr, "ipaddr", "", "client address")
	return cmd
}
