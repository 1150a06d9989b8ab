package services

import (
	"context"
	"iter"
	"sort"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
)

// LogService appends and queries audit log entries. Entries are never
// changed or removed.
type LogService struct {
	*base
}

// LogQuery filters GetLogs. Zero fields do not filter.
type LogQuery struct {
	// UserID is the caller. It matters only when Security is set.
	UserID string
	// Security limits a caller who is neither a global admin nor an admin of
	// the filtered course to their own entries.
	Security bool

	StartTime int64
	EndTime   int64
	CourseID  string
	CourseKey string
	MovieID   string
	LogUserID string
	IPAddr    string
}

// AddLog appends entry, assigning log_id and time_t when unset.
func (s *LogService) AddLog(ctx context.Context, entry models.LogEntry) (*models.LogEntry, error) {
	ctx, span := tracer.Start(ctx, "LogService.AddLog")
	defer span.End()

	if entry.LogID == "" {
		entry.LogID = NewLogID()
	}
	if entry.TimeT == 0 {
		entry.TimeT = s.unix()
	}
	if err := s.t.logs.Put(ctx, entry, true); err != nil {
		return nil, fail(span, err)
	}
	return &entry, nil
}

// logFilter is a resolved LogQuery.
type logFilter struct {
	LogQuery
	// onlyUser restricts results to entries about this user.
	onlyUser string
}

func (f logFilter) match(e models.LogEntry) bool {
	switch {
	case f.StartTime != 0 && e.TimeT < f.StartTime:
		return false
	case f.EndTime != 0 && e.TimeT > f.EndTime:
		return false
	case f.CourseID != "" && e.CourseID != f.CourseID:
		return false
	case f.MovieID != "" && e.MovieID != f.MovieID:
		return false
	case f.LogUserID != "" && e.UserID != f.LogUserID:
		return false
	case f.IPAddr != "" && e.IPAddr != f.IPAddr:
		return false
	case f.onlyUser != "" && e.UserID != f.onlyUser:
		return false
	}
	return true
}

// GetLogs lazily yields the entries matching q.
//
// The narrowest available index is used (movie, then user, then course);
// otherwise the table is scanned. Indexed results come in time order; scan
// order is unspecified. An unknown course_key yields nothing.
func (s *LogService) GetLogs(ctx context.Context, q LogQuery) iter.Seq2[models.LogEntry, error] {
	return func(yield func(models.LogEntry, error) bool) {
		ctx, span := tracer.Start(ctx, "LogService.GetLogs")
		defer span.End()

		f, ok, err := s.resolve(ctx, q)
		if err != nil {
			yield(models.LogEntry{}, fail(span, err))
			return
		}
		if !ok {
			return
		}

		var index, value string
		switch {
		case f.MovieID != "":
			index, value = models.IndexMovieID, f.MovieID
		case f.LogUserID != "":
			index, value = models.IndexUserID, f.LogUserID
		case f.onlyUser != "":
			index, value = models.IndexUserID, f.onlyUser
		case f.CourseID != "":
			index, value = models.IndexCourseID, f.CourseID
		}

		if index == "" {
			for e, err := range s.t.logs.ScanFiltered(ctx, f.match) {
				if err != nil {
					yield(e, fail(span, err))
					return
				}
				if !yield(e, nil) {
					return
				}
			}
			return
		}

		entries, err := s.t.logs.GetBySecondary(ctx, index, value)
		if err != nil {
			yield(models.LogEntry{}, fail(span, err))
			return
		}
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].TimeT != entries[j].TimeT {
				return entries[i].TimeT < entries[j].TimeT
			}
			return entries[i].LogID < entries[j].LogID
		})
		for _, e := range entries {
			if !f.match(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// resolve turns q into a filter. It reports false when nothing can match.
func (s *LogService) resolve(ctx context.Context, q LogQuery) (logFilter, bool, error) {
	f := logFilter{LogQuery: q}

	if q.CourseKey != "" {
		course, err := s.courseByKey(ctx, q.CourseKey)
		if err != nil {
			return f, false, err
		}
		if course == nil || (q.CourseID != "" && q.CourseID != course.CourseID) {
			return f, false, nil
		}
		f.CourseID = course.CourseID
	}

	if !q.Security {
		return f, true, nil
	}
	caller, err := s.t.users.Get(ctx, q.UserID)
	if err != nil {
		return f, false, err
	}
	if caller == nil {
		return f, false, types.ErrUnknownUser
	}
	if caller.Admin == 1 {
		return f, true, nil
	}
	if f.CourseID != "" {
		course, err := s.t.courses.Get(ctx, f.CourseID)
		if err != nil {
			return f, false, err
		}
		if caller.IsAdminForCourse(f.CourseID) || (course != nil && models.SetContains(course.AdminsForCourse, caller.UserID)) {
			return f, true, nil
		}
	}
	if f.LogUserID != "" && f.LogUserID != caller.UserID {
		return f, false, nil
	}
	f.onlyUser = caller.UserID
	return f, true, nil
}
