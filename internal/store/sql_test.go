package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/planttracer/odb/internal/store"
	"github.com/planttracer/odb/internal/store/storetest"
)

// setupTestDB opens a file-backed SQLite database. A single connection keeps
// every query on the same database and serializes writers.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "odb.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestSQLBackend(t *testing.T) {
	storetest.Run(t, store.NewSQLBackend(setupTestDB(t)))
}

func TestSQLBackend_SmallPages(t *testing.T) {
	backend := store.NewSQLBackend(setupTestDB(t)).WithScanPageSize(3)
	tbl := storetest.NewWidgetTable(t, backend)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, tbl.Put(ctx, storetest.Widget{ID: fmt.Sprintf("w%02d", i), Owner: "alice"}, true))
	}

	var ids []string
	for w, err := range tbl.ScanFiltered(ctx, nil) {
		require.NoError(t, err)
		// queries between pages must not block on the single connection
		owned, err := tbl.GetBySecondary(ctx, "owner", "alice")
		require.NoError(t, err)
		require.Len(t, owned, 10)
		ids = append(ids, w.ID)
	}
	require.Len(t, ids, 10)
	assert.Equal(t, "w00", ids[0])
	assert.Equal(t, "w09", ids[9])
}

func TestSQLBackend_Name(t *testing.T) {
	backend := store.NewSQLBackend(setupTestDB(t))
	assert.Equal(t, "sql/sqlite", backend.Name())
}

func TestSQLBackend_GetReturnsIndexes(t *testing.T) {
	backend := store.NewSQLBackend(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, backend.EnsureTables(ctx, []store.TableSpec{{Name: "things", Indexes: []string{"owner"}}}))
	require.NoError(t, backend.Put(ctx, "things", store.Item{
		Key:     "a",
		Version: 1,
		Indexes: map[string]string{"owner": "bob"},
		Body:    []byte(`{"x":1}`),
	}, true))

	item, err := backend.Get(ctx, "things", "a")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, map[string]string{"owner": "bob"}, item.Indexes)
	assert.JSONEq(t, `{"x":1}`, string(item.Body))
}

func TestNew_RejectsBadPrefix(t *testing.T) {
	backend := store.NewSQLBackend(setupTestDB(t))
	_, err := store.New(backend, "bad-prefix;", nil)
	assert.Error(t, err)

	st, err := store.New(backend, "dev_", nil)
	require.NoError(t, err)
	assert.Equal(t, "dev_users", st.PhysicalName("users"))
}
