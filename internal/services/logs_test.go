package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/types"
)

type logFixture struct {
	svc        *services.Services
	admin      *models.User
	instructor *models.User
	alice      *models.User
	bob        *models.User
}

func setupLogs(t *testing.T) logFixture {
	t.Helper()
	svc := setupServices(t)
	ctx := context.Background()

	admin, err := svc.Users.AddUser(ctx, models.User{Email: "admin@example.com", Enabled: 1, Admin: 1})
	require.NoError(t, err)
	f := logFixture{
		svc:        svc,
		admin:      admin,
		instructor: addUser(t, svc, "instructor@example.com"),
		alice:      addUser(t, svc, "alice@example.com"),
		bob:        addUser(t, svc, "bob@example.com"),
	}
	addCourse(t, svc, "c1", "BIO-101", 0)
	addCourse(t, svc, "c2", "BIO-102", 0)
	require.NoError(t, svc.Courses.AddCourseAdmin(ctx, "c1", f.instructor.UserID))

	entries := []models.LogEntry{
		{UserID: f.alice.UserID, CourseID: "c1", MovieID: "m1", IPAddr: "10.0.0.1", TimeT: 100, Message: "upload"},
		{UserID: f.alice.UserID, CourseID: "c1", IPAddr: "10.0.0.1", TimeT: 200, Message: "login"},
		{UserID: f.bob.UserID, CourseID: "c1", MovieID: "m2", IPAddr: "10.0.0.2", TimeT: 300, Message: "upload"},
		{UserID: f.bob.UserID, CourseID: "c2", IPAddr: "10.0.0.2", TimeT: 400, Message: "login"},
		{UserID: f.alice.UserID, CourseID: "c2", IPAddr: "10.0.0.3", TimeT: 500, Message: "login"},
	}
	for _, e := range entries {
		_, err := svc.Logs.AddLog(ctx, e)
		require.NoError(t, err)
	}
	return f
}

func collectLogs(t *testing.T, svc *services.Services, q services.LogQuery) []models.LogEntry {
	t.Helper()
	var out []models.LogEntry
	for e, err := range svc.Logs.GetLogs(context.Background(), q) {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func times(entries []models.LogEntry) []int64 {
	out := []int64{}
	for _, e := range entries {
		out = append(out, e.TimeT)
	}
	return out
}

func TestAddLog(t *testing.T) {
	svc := setupServices(t)
	entry, err := svc.Logs.AddLog(context.Background(), models.LogEntry{UserID: "u1", Message: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.LogID)
	assert.NotZero(t, entry.TimeT)

	_, err = svc.Logs.AddLog(context.Background(), *entry)
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestGetLogs_Filters(t *testing.T) {
	f := setupLogs(t)

	assert.Len(t, collectLogs(t, f.svc, services.LogQuery{}), 5)
	assert.Equal(t, []int64{300}, times(collectLogs(t, f.svc, services.LogQuery{MovieID: "m2"})))
	assert.Equal(t, []int64{100, 200, 500}, times(collectLogs(t, f.svc, services.LogQuery{LogUserID: f.alice.UserID})))
	assert.Equal(t, []int64{100, 200, 300}, times(collectLogs(t, f.svc, services.LogQuery{CourseID: "c1"})))
	assert.Equal(t, []int64{400, 500}, times(collectLogs(t, f.svc, services.LogQuery{CourseKey: "BIO-102"})))
	assert.Equal(t, []int64{200}, times(collectLogs(t, f.svc, services.LogQuery{CourseID: "c1", StartTime: 150, EndTime: 250})))
	assert.Equal(t, []int64{500}, times(collectLogs(t, f.svc, services.LogQuery{LogUserID: f.alice.UserID, IPAddr: "10.0.0.3"})))

	scanned := collectLogs(t, f.svc, services.LogQuery{IPAddr: "10.0.0.2"})
	assert.ElementsMatch(t, []int64{300, 400}, times(scanned))
}

func TestGetLogs_UnknownCourseKeyIsEmpty(t *testing.T) {
	f := setupLogs(t)
	assert.Empty(t, collectLogs(t, f.svc, services.LogQuery{CourseKey: "NOPE"}))
	assert.Empty(t, collectLogs(t, f.svc, services.LogQuery{CourseKey: "BIO-101", CourseID: "c2"}))
}

func TestGetLogs_Security(t *testing.T) {
	f := setupLogs(t)

	// a plain user sees only their own entries
	own := collectLogs(t, f.svc, services.LogQuery{UserID: f.bob.UserID, Security: true})
	assert.Equal(t, []int64{300, 400}, times(own))

	other := collectLogs(t, f.svc, services.LogQuery{UserID: f.bob.UserID, Security: true, LogUserID: f.alice.UserID})
	assert.Empty(t, other)

	// a course admin sees everyone in that course, but only their own elsewhere
	course := collectLogs(t, f.svc, services.LogQuery{UserID: f.instructor.UserID, Security: true, CourseID: "c1"})
	assert.Equal(t, []int64{100, 200, 300}, times(course))
	elsewhere := collectLogs(t, f.svc, services.LogQuery{UserID: f.instructor.UserID, Security: true, CourseID: "c2"})
	assert.Empty(t, elsewhere)

	// a global admin sees everything
	all := collectLogs(t, f.svc, services.LogQuery{UserID: f.admin.UserID, Security: true})
	assert.Len(t, all, 5)
}

func TestGetLogs_SecurityUnknownCaller(t *testing.T) {
	f := setupLogs(t)
	var gotErr error
	for _, err := range f.svc.Logs.GetLogs(context.Background(), services.LogQuery{UserID: "unobody", Security: true}) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, types.ErrUnknownUser)
}

func TestGetLogs_EarlyStop(t *testing.T) {
	f := setupLogs(t)
	n := 0
	for _, err := range f.svc.Logs.GetLogs(context.Background(), services.LogQuery{}) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}
