package models

// Course groups users and their movies.
type Course struct {
	CourseID        string   `json:"course_id" validate:"required,excludes=#"`
	CourseName      string   `json:"course_name"`
	CourseKey       string   `json:"course_key" validate:"required"`
	AdminsForCourse []string `json:"admins_for_course"`
	MaxEnrollment   int      `json:"max_enrollment" validate:"gte=0"`
	Created         int64    `json:"created" validate:"gte=0"`
}

// PrimaryKey implements store.Document.
func (c Course) PrimaryKey() string { return c.CourseID }

// IndexValues implements store.Document.
func (c Course) IndexValues() map[string]string { return nil }

// CourseUser is a membership edge between a user and a course.
type CourseUser struct {
	UserID   string `json:"user_id" validate:"required,excludes=#"`
	CourseID string `json:"course_id" validate:"required,excludes=#"`
}

// PrimaryKey implements store.Document.
func (cu CourseUser) PrimaryKey() string { return CourseUserKey(cu.UserID, cu.CourseID) }

// IndexValues implements store.Document.
func (cu CourseUser) IndexValues() map[string]string {
	return map[string]string{
		IndexUserID:   cu.UserID,
		IndexCourseID: cu.CourseID,
	}
}
