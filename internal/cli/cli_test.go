package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/planttracer/odb/internal/cli"
	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/store"
	"github.com/planttracer/odb/internal/types"
)

// sqliteOpener opens a fresh connection to one SQLite file per command run.
func sqliteOpener(t *testing.T) cli.OpenFunc {
	t.Helper()
	path := filepath.Join(t.TempDir(), "odb.db")
	return func(ctx context.Context, _ string) (*services.Services, error) {
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		st, err := store.New(store.NewSQLBackend(db), "cli_", zap.NewNop())
		if err != nil {
			return nil, err
		}
		return services.New(st, zap.NewNop()), nil
	}
}

func run(t *testing.T, open cli.OpenFunc, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, open cli.OpenFunc, args ...string) string {
	t.Helper()
	out, err := run(t, open, args...)
	require.NoError(t, err, out)
	return strings.TrimSpace(out)
}

func TestCreateTables(t *testing.T) {
	open := sqliteOpener(t)
	out := mustRun(t, open, "create-tables")
	assert.Contains(t, out, "cli_users")
	assert.Contains(t, out, "cli_movie_frames")
	assert.Len(t, strings.Split(out, "\n"), len(services.TableSpecs()))
}

func TestUserLifecycle(t *testing.T) {
	open := sqliteOpener(t)
	mustRun(t, open, "create-tables")

	userID := mustRun(t, open, "add-user", "grower@example.com", "--name", "Pat Grower")
	assert.True(t, strings.HasPrefix(userID, "u"))

	_, err := run(t, open, "add-user", "GROWER@example.com")
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	assert.Equal(t, "bio101", mustRun(t, open, "add-course", "bio101", "KEY-1", "--max-enrollment", "1"))
	assert.Contains(t, mustRun(t, open, "enroll", "grower@example.com", "bio101", "--admin"), userID)

	mustRun(t, open, "add-user", "second@example.com")
	_, err = run(t, open, "enroll", "second@example.com", "bio101")
	assert.ErrorIs(t, err, types.ErrCourseFull)

	key := mustRun(t, open, "make-api-key", "grower@example.com")
	assert.True(t, services.IsAPIKey(key))

	list := mustRun(t, open, "list-users")
	assert.Contains(t, list, "grower@example.com")
	assert.Contains(t, list, "Pat Grower")

	assert.Contains(t, mustRun(t, open, "delete-user", "grower@example.com"), userID)
	_, err = run(t, open, "make-api-key", "grower@example.com")
	assert.ErrorIs(t, err, types.ErrUnknownUser)
}

func TestDeleteUser_OutstandingMovies(t *testing.T) {
	open := sqliteOpener(t)
	mustRun(t, open, "create-tables")
	userID := mustRun(t, open, "add-user", "grower@example.com")
	mustRun(t, open, "add-course", "bio101", "KEY-1")

	svc, err := open(context.Background(), "")
	require.NoError(t, err)
	_, err = svc.Movies.PutMovie(context.Background(), models.Movie{Title: "sprout", UserID: userID, CourseID: "bio101"})
	require.NoError(t, err)
	require.NoError(t, svc.Store().Close())

	_, err = run(t, open, "delete-user", "grower@example.com")
	assert.ErrorIs(t, err, types.ErrHasOutstandingResources)

	mustRun(t, open, "delete-user", "grower@example.com", "--purge-movies")
}

func TestLogs(t *testing.T) {
	open := sqliteOpener(t)
	mustRun(t, open, "create-tables")
	alice := mustRun(t, open, "add-user", "alice@example.com")
	bob := mustRun(t, open, "add-user", "bob@example.com")

	svc, err := open(context.Background(), "")
	require.NoError(t, err)
	for _, userID := range []string{alice, bob} {
		_, err := svc.Logs.AddLog(context.Background(), models.LogEntry{UserID: userID, Message: "login " + userID, TimeT: 1700000000})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Store().Close())

	all := mustRun(t, open, "logs")
	assert.Contains(t, all, "login "+alice)
	assert.Contains(t, all, "login "+bob)
	assert.Contains(t, all, "2023-11-14T22:13:20Z")

	own := mustRun(t, open, "logs", "--as", "alice@example.com")
	assert.Contains(t, own, "login "+alice)
	assert.NotContains(t, own, "login "+bob)
}

func TestVersion(t *testing.T) {
	out := mustRun(t, sqliteOpener(t), "version")
	assert.Equal(t, "odbutil version "+cli.Version, out)
}
