package services

import (
	"context"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/store"
)

// Logical table specs.
var (
	UsersTable       = store.TableSpec{Name: "users"}
	UniqueEmails     = store.TableSpec{Name: "unique_emails"}
	CoursesTable     = store.TableSpec{Name: "courses"}
	UniqueCourseKeys = store.TableSpec{Name: "unique_course_keys"}
	CourseUsersTable = store.TableSpec{Name: "course_users", Indexes: []string{models.IndexUserID, models.IndexCourseID}}
	MoviesTable      = store.TableSpec{Name: "movies", Indexes: []string{models.IndexUserID, models.IndexCourseID}}
	FramesTable      = store.TableSpec{Name: "movie_frames", Indexes: []string{models.IndexMovieID}}
	APIKeysTable     = store.TableSpec{Name: "api_keys", Indexes: []string{models.IndexUserID}}
	LogsTable        = store.TableSpec{Name: "logs", Indexes: []string{models.IndexUserID, models.IndexCourseID, models.IndexMovieID}}
)

// TableSpecs lists every table the repositories use.
func TableSpecs() []store.TableSpec {
	return []store.TableSpec{
		UsersTable, UniqueEmails, CoursesTable, UniqueCourseKeys, CourseUsersTable,
		MoviesTable, FramesTable, APIKeysTable, LogsTable,
	}
}

// EnsureTables creates any missing tables.
func EnsureTables(ctx context.Context, st *store.Store) error {
	return st.EnsureTables(ctx, TableSpecs()...)
}

// tables holds the typed accessors shared by every service.
type tables struct {
	users       *store.Table[models.User]
	emails      *store.Table[models.UniqueKey]
	courses     *store.Table[models.Course]
	courseKeys  *store.Table[models.UniqueKey]
	courseUsers *store.Table[models.CourseUser]
	movies      *store.Table[models.Movie]
	frames      *store.Table[models.MovieFrame]
	apiKeys     *store.Table[models.APIKey]
	logs        *store.Table[models.LogEntry]
}

func newTables(st *store.Store) *tables {
	return &tables{
		users:       store.NewTable[models.User](st, UsersTable),
		emails:      store.NewTable[models.UniqueKey](st, UniqueEmails),
		courses:     store.NewTable[models.Course](st, CoursesTable),
		courseKeys:  store.NewTable[models.UniqueKey](st, UniqueCourseKeys),
		courseUsers: store.NewTable[models.CourseUser](st, CourseUsersTable),
		movies:      store.NewTable[models.Movie](st, MoviesTable),
		frames:      store.NewTable[models.MovieFrame](st, FramesTable),
		apiKeys:     store.NewTable[models.APIKey](st, APIKeysTable),
		logs:        store.NewTable[models.LogEntry](st, LogsTable),
	}
}
