package models

// LogEntry is an append-only audit record.
type LogEntry struct {
	LogID    string `json:"log_id" validate:"required"`
	IPAddr   string `json:"ipaddr"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	MovieID  string `json:"movie_id"`
	Message  string `json:"message"`
	TimeT    int64  `json:"time_t"`
}

// PrimaryKey implements store.Document.
func (l LogEntry) PrimaryKey() string { return l.LogID }

// IndexValues implements store.Document.
func (l LogEntry) IndexValues() map[string]string {
	return map[string]string{
		IndexUserID:   l.UserID,
		IndexCourseID: l.CourseID,
		IndexMovieID:  l.MovieID,
	}
}
