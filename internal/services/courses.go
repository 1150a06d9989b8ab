package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
	"github.com/planttracer/odb/internal/validate"
)

// CourseService manages courses, course keys and enrollment edges.
type CourseService struct {
	*base
}

// CourseLookup selects a course by exactly one of its fields.
type CourseLookup struct {
	CourseID  string
	CourseKey string
}

// PutCourse creates course. It fails with types.ErrAlreadyExists when the
// course_id or the course_key is taken.
func (s *CourseService) PutCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	ctx, span := tracer.Start(ctx, "CourseService.PutCourse")
	defer span.End()

	course.CourseKey = strings.TrimSpace(course.CourseKey)
	if course.Created == 0 {
		course.Created = s.unix()
	}
	if err := validate.Struct(course); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("course_id", course.CourseID))

	err := s.t.courseKeys.Put(ctx, models.UniqueKey{Value: course.CourseKey, RefID: course.CourseID}, true)
	if errors.Is(err, types.ErrAlreadyExists) {
		return nil, fail(span, &types.AlreadyExistsError{Resource: "course_key", Key: course.CourseKey})
	}
	if err != nil {
		return nil, fail(span, err)
	}
	if err := s.t.courses.Put(ctx, course, true); err != nil {
		s.releaseCourseKey(ctx, course.CourseKey, course.CourseID)
		return nil, fail(span, err)
	}

	s.logger.Info("Course added", zap.String("course_id", course.CourseID))
	return &course, nil
}

// GetCourse returns the matching course, or nil when there is none.
func (s *CourseService) GetCourse(ctx context.Context, lookup CourseLookup) (*models.Course, error) {
	ctx, span := tracer.Start(ctx, "CourseService.GetCourse")
	defer span.End()

	if (lookup.CourseID == "") == (lookup.CourseKey == "") {
		return nil, fail(span, fmt.Errorf("%w: exactly one of course_id and course_key is required", types.ErrInvalidArgument))
	}
	if lookup.CourseID != "" {
		course, err := s.t.courses.Get(ctx, lookup.CourseID)
		return course, fail(span, err)
	}
	course, err := s.courseByKey(ctx, lookup.CourseKey)
	return course, fail(span, err)
}

func (b *base) courseByKey(ctx context.Context, key string) (*models.Course, error) {
	marker, err := b.t.courseKeys.Get(ctx, strings.TrimSpace(key))
	if err != nil || marker == nil {
		return nil, err
	}
	course, err := b.t.courses.Get(ctx, marker.RefID)
	if err != nil || course == nil {
		return nil, err
	}
	if course.CourseKey != marker.Value {
		return nil, nil
	}
	return course, nil
}

// DeleteCourse removes the course and its key. Enrollment edges and movies
// that reference the course are left in place.
func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	ctx, span := tracer.Start(ctx, "CourseService.DeleteCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course_id", courseID))

	course, err := s.t.courses.Get(ctx, courseID)
	if err != nil {
		return fail(span, err)
	}
	if course == nil {
		return nil
	}
	if err := s.t.courses.Delete(ctx, courseID); err != nil {
		return fail(span, err)
	}
	s.releaseCourseKey(ctx, course.CourseKey, courseID)

	s.logger.Info("Course deleted", zap.String("course_id", courseID))
	return nil
}

// AddCourseUser enrolls userID in courseID. The course is appended to the
// user's course list and becomes the primary course if none is set. It fails
// with types.ErrCourseFull when max_enrollment (if non-zero) is reached and
// with types.ErrAlreadyExists when the user is already enrolled.
func (s *CourseService) AddCourseUser(ctx context.Context, userID, courseID string) error {
	ctx, span := tracer.Start(ctx, "CourseService.AddCourseUser")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("course_id", courseID))

	if err := validate.Struct(models.CourseUser{UserID: userID, CourseID: courseID}); err != nil {
		return fail(span, err)
	}
	user, course, err := s.userAndCourse(ctx, userID, courseID)
	if err != nil {
		return fail(span, err)
	}

	if course.MaxEnrollment > 0 {
		enrolled, err := s.t.courseUsers.GetBySecondary(ctx, models.IndexCourseID, courseID)
		if err != nil {
			return fail(span, err)
		}
		if len(enrolled) >= course.MaxEnrollment {
			return fail(span, fmt.Errorf("%w: %s has %d of %d", types.ErrCourseFull, courseID, len(enrolled), course.MaxEnrollment))
		}
	}

	if err := s.t.courseUsers.Put(ctx, models.CourseUser{UserID: user.UserID, CourseID: courseID}, true); err != nil {
		return fail(span, err)
	}
	_, err = s.updateUser(ctx, userID, func(u *models.User) error {
		u.Courses = models.AddToSet(u.Courses, courseID)
		if u.PrimaryCourseID == "" {
			u.PrimaryCourseID = courseID
		}
		return nil
	})
	return fail(span, err)
}

// RemoveCourseUser drops the enrollment edge and the course from the user's
// course list.
func (s *CourseService) RemoveCourseUser(ctx context.Context, userID, courseID string) error {
	ctx, span := tracer.Start(ctx, "CourseService.RemoveCourseUser")
	defer span.End()

	if err := validate.Struct(models.CourseUser{UserID: userID, CourseID: courseID}); err != nil {
		return fail(span, err)
	}
	if err := s.t.courseUsers.Delete(ctx, models.CourseUserKey(userID, courseID)); err != nil {
		return fail(span, err)
	}
	_, err := s.t.users.Update(ctx, userID, func(u *models.User) error {
		u.Courses = models.RemoveFromSet(u.Courses, courseID)
		if u.PrimaryCourseID == courseID {
			u.PrimaryCourseID = ""
			if len(u.Courses) > 0 {
				u.PrimaryCourseID = u.Courses[0]
			}
		}
		return nil
	})
	return fail(span, err)
}

// CoursesForUser returns the courses userID is enrolled in.
func (s *CourseService) CoursesForUser(ctx context.Context, userID string) ([]models.Course, error) {
	ctx, span := tracer.Start(ctx, "CourseService.CoursesForUser")
	defer span.End()

	edges, err := s.t.courseUsers.GetBySecondary(ctx, models.IndexUserID, userID)
	if err != nil {
		return nil, fail(span, err)
	}
	courses := make([]models.Course, 0, len(edges))
	for _, e := range edges {
		c, err := s.t.courses.Get(ctx, e.CourseID)
		if err != nil {
			return nil, fail(span, err)
		}
		if c != nil {
			courses = append(courses, *c)
		}
	}
	return courses, nil
}

// UsersInCourse returns the users enrolled in courseID.
func (s *CourseService) UsersInCourse(ctx context.Context, courseID string) ([]models.User, error) {
	ctx, span := tracer.Start(ctx, "CourseService.UsersInCourse")
	defer span.End()

	edges, err := s.t.courseUsers.GetBySecondary(ctx, models.IndexCourseID, courseID)
	if err != nil {
		return nil, fail(span, err)
	}
	users := make([]models.User, 0, len(edges))
	for _, e := range edges {
		u, err := s.t.users.Get(ctx, e.UserID)
		if err != nil {
			return nil, fail(span, err)
		}
		if u != nil {
			users = append(users, *u)
		}
	}
	return users, nil
}

// AddCourseAdmin makes userID an administrator of courseID. Both the course
// and the user record are updated.
func (s *CourseService) AddCourseAdmin(ctx context.Context, courseID, userID string) error {
	ctx, span := tracer.Start(ctx, "CourseService.AddCourseAdmin")
	defer span.End()

	if _, _, err := s.userAndCourse(ctx, userID, courseID); err != nil {
		return fail(span, err)
	}
	if _, err := s.t.courses.Update(ctx, courseID, func(c *models.Course) error {
		c.AdminsForCourse = models.AddToSet(c.AdminsForCourse, userID)
		return nil
	}); err != nil {
		return fail(span, err)
	}
	_, err := s.updateUser(ctx, userID, func(u *models.User) error {
		u.AdminForCourses = models.AddToSet(u.AdminForCourses, courseID)
		return nil
	})
	return fail(span, err)
}

// IsCourseAdmin reports whether userID administers courseID.
func (s *CourseService) IsCourseAdmin(ctx context.Context, courseID, userID string) (bool, error) {
	course, err := s.t.courses.Get(ctx, courseID)
	if err != nil || course == nil {
		return false, err
	}
	return models.SetContains(course.AdminsForCourse, userID), nil
}

func (b *base) userAndCourse(ctx context.Context, userID, courseID string) (*models.User, *models.Course, error) {
	user, err := b.t.users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, types.ErrUnknownUser
	}
	course, err := b.t.courses.Get(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	if course == nil {
		return nil, nil, fmt.Errorf("%w: %s", types.ErrUnknownCourse, courseID)
	}
	return user, course, nil
}

func (b *base) releaseCourseKey(ctx context.Context, key, courseID string) {
	marker, err := b.t.courseKeys.Get(ctx, key)
	if err == nil && marker != nil && marker.RefID == courseID {
		err = b.t.courseKeys.Delete(ctx, key)
	}
	if err != nil {
		b.logger.Warn("Failed to release course key", zap.String("course_id", courseID), zap.Error(err))
	}
}
