package models

import (
	"fmt"
	"strings"
)

// Secondary index names shared by several tables.
const (
	IndexUserID   = "user_id"
	IndexCourseID = "course_id"
	IndexMovieID  = "movie_id"
)

// keySeparator joins the parts of a composite primary key.
const keySeparator = "#"

// CompositeKey joins key parts into a single primary key.
func CompositeKey(parts ...string) string {
	return strings.Join(parts, keySeparator)
}

// FrameKey is the primary key of a MovieFrame. Frame numbers are zero-padded so
// that lexical key order matches frame order.
func FrameKey(movieID string, frameNumber int) string {
	return CompositeKey(movieID, fmt.Sprintf("%08d", frameNumber))
}

// CourseUserKey is the primary key of a CourseUser edge.
func CourseUserKey(userID, courseID string) string {
	return CompositeKey(userID, courseID)
}

// NormalizeEmail is the form used for the unique-email marker.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddToSet appends v to set unless it is already present.
func AddToSet(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

// RemoveFromSet returns set without v.
func RemoveFromSet(set []string, v string) []string {
	out := set[:0:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// SetContains reports whether v is in set.
func SetContains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
