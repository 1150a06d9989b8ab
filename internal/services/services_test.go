package services_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/store"
)

// setupServices builds the repositories over a fresh SQLite file.
func setupServices(t *testing.T, opts ...services.Option) *services.Services {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "odb.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st, err := store.New(store.NewSQLBackend(db), "test_", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, services.EnsureTables(context.Background(), st))
	return services.New(st, zap.NewNop(), opts...)
}

// fakeClock advances one second per reading.
type fakeClock struct {
	sec atomic.Int64
}

func newFakeClock(start int64) *fakeClock {
	c := &fakeClock{}
	c.sec.Store(start)
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(c.sec.Add(1), 0)
}

func addUser(t *testing.T, svc *services.Services, email string) *models.User {
	t.Helper()
	user, err := svc.Users.AddUser(context.Background(), models.User{
		Email:    email,
		FullName: "Test " + email,
		Enabled:  1,
	})
	require.NoError(t, err)
	return user
}

func addCourse(t *testing.T, svc *services.Services, courseID, key string, maxEnrollment int) *models.Course {
	t.Helper()
	course, err := svc.Courses.PutCourse(context.Background(), models.Course{
		CourseID:      courseID,
		CourseName:    "Course " + courseID,
		CourseKey:     key,
		MaxEnrollment: maxEnrollment,
	})
	require.NoError(t, err)
	return course
}

func addMovie(t *testing.T, svc *services.Services, userID, courseID string) *models.Movie {
	t.Helper()
	movie, err := svc.Movies.PutMovie(context.Background(), models.Movie{
		UserID:   userID,
		CourseID: courseID,
		Title:    "Bean sprout",
	})
	require.NoError(t, err)
	return movie
}
