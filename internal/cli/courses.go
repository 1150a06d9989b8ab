package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
)

func newAddCourseCmd(run servicesRunner) *cobra.Command {
	var name string
	var maxEnrollment int

	cmd := &cobra.Command{
		Use:   "add-course <course-id> <course-key>",
		Short: "Add a course",
		Long:  `Add a course. Course keys are unique. A max enrollment of 0 is unlimited.`,
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, svc *services.Services, args []string) error {
			course, err := svc.Courses.PutCourse(cmd.Context(), models.Course{
				CourseID:      args[0],
				CourseKey:     args[1],
				CourseName:    name,
				MaxEnrollment: maxEnrollment,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), course.CourseID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "course name")
	cmd.Flags().IntVar(&maxEnrollment, "max-enrollment", 0, "maximum number of enrolled users")
	return cmd
}

func newEnrollCmd(run servicesRunner) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "enroll <email> <course-id>",
		Short: "Enroll a user in a course",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, svc *services.Services, args []string) error {
			ctx := cmd.Context()
			userID, err := userByEmail(ctx, svc, args[0])
			if err != nil {
				return err
			}
			courseID := args[1]
			if err := svc.Courses.AddCourseUser(ctx, userID, courseID); err != nil {
				return err
			}
			if admin {
				if err := svc.Courses.AddCourseAdmin(ctx, courseID, userID); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s in %s\n", userID, courseID)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "also make the user a course admin")
	return cmd
}
