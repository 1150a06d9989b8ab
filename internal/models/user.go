package models

// User is a person with access to one or more courses.
type User struct {
	UserID          string   `json:"user_id" validate:"required,excludes=#"`
	Email           string   `json:"email" validate:"required,email"`
	FullName        string   `json:"full_name"`
	Created         int64    `json:"created" validate:"gte=0"`
	Enabled         int      `json:"enabled" validate:"oneof=0 1"`
	Demo            int      `json:"demo" validate:"oneof=0 1"`
	Admin           int      `json:"admin" validate:"oneof=0 1"`
	AdminForCourses []string `json:"admin_for_courses"`
	PrimaryCourseID string   `json:"primary_course_id"`
	Courses         []string `json:"courses"`
}

// PrimaryKey implements store.Document.
func (u User) PrimaryKey() string { return u.UserID }

// IndexValues implements store.Document.
func (u User) IndexValues() map[string]string { return nil }

// IsAdminForCourse reports whether the user administers courseID.
func (u User) IsAdminForCourse(courseID string) bool {
	return SetContains(u.AdminForCourses, courseID)
}

// UniqueKey maps a unique attribute value (an email, a course key) to the
// primary key of the record that owns it.
type UniqueKey struct {
	Value string `json:"value"`
	RefID string `json:"ref_id"`
}

// PrimaryKey implements store.Document.
func (k UniqueKey) PrimaryKey() string { return k.Value }

// IndexValues implements store.Document.
func (k UniqueKey) IndexValues() map[string]string { return nil }
