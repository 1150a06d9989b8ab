// Package storetest holds the behavior every store.Backend must share.
// Backend tests run it against their own instance.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/store"
	"github.com/planttracer/odb/internal/types"
)

// Widget is the document type the suite stores.
type Widget struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

func (w Widget) PrimaryKey() string { return w.ID }

func (w Widget) IndexValues() map[string]string {
	return map[string]string{"owner": w.Owner, "color": w.Color, "undeclared": w.ID}
}

// WidgetSpec declares the suite table.
var WidgetSpec = store.TableSpec{Name: "widgets", Indexes: []string{"owner", "color"}}

var tableSeq atomic.Int64

// NewWidgetTable creates a freshly prefixed widget table on backend.
func NewWidgetTable(t *testing.T, backend store.Backend) *store.Table[Widget] {
	t.Helper()
	st, err := store.New(backend, fmt.Sprintf("t%d_", tableSeq.Add(1)), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.EnsureTables(context.Background(), WidgetSpec))
	return store.NewTable[Widget](st, WidgetSpec)
}

// Run exercises backend through store.Table.
func Run(t *testing.T, backend store.Backend) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, backend.Ping(ctx))
	})

	t.Run("PutGet", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "alice", Color: "red", Count: 3}, true))

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, Widget{ID: "w1", Owner: "alice", Color: "red", Count: 3}, *got)

		missing, err := tbl.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		empty, err := tbl.Get(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, empty)
	})

	t.Run("PutRequireAbsent", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Color: "red"}, true))

		err := tbl.Put(ctx, Widget{ID: "w1", Color: "blue"}, true)
		require.ErrorIs(t, err, types.ErrAlreadyExists)
		var exists *types.AlreadyExistsError
		require.True(t, errors.As(err, &exists))
		assert.Equal(t, "w1", exists.Key)

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, "red", got.Color)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "alice"}, false))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "bob"}, false))

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Owner)

		alice, err := tbl.GetBySecondary(ctx, "owner", "alice")
		require.NoError(t, err)
		assert.Empty(t, alice)
	})

	t.Run("PutEmptyKey", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		err := tbl.Put(ctx, Widget{Owner: "alice"}, true)
		require.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("GetBySecondary", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w2", Owner: "alice", Color: "red"}, true))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "alice", Color: "blue"}, true))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w3", Owner: "bob", Color: "red"}, true))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w4", Color: "green"}, true))

		alice, err := tbl.GetBySecondary(ctx, "owner", "alice")
		require.NoError(t, err)
		require.Len(t, alice, 2)
		assert.Equal(t, "w1", alice[0].ID)
		assert.Equal(t, "w2", alice[1].ID)

		red, err := tbl.GetBySecondary(ctx, "color", "red")
		require.NoError(t, err)
		assert.Len(t, red, 2)

		none, err := tbl.GetBySecondary(ctx, "owner", "carol")
		require.NoError(t, err)
		assert.Empty(t, none)

		blank, err := tbl.GetBySecondary(ctx, "owner", "")
		require.NoError(t, err)
		assert.Empty(t, blank)

		_, err = tbl.GetBySecondary(ctx, "undeclared", "w1")
		require.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("KeysCompareExactly", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "BIO-101", Owner: "Alice"}, true))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "bio-101", Owner: "alice"}, true))
		require.NoError(t, tbl.Put(ctx, Widget{ID: "bio-101 ", Owner: "alice "}, true))

		got, err := tbl.Get(ctx, "bio-101")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Owner)

		upper, err := tbl.GetBySecondary(ctx, "owner", "Alice")
		require.NoError(t, err)
		require.Len(t, upper, 1)
		assert.Equal(t, "BIO-101", upper[0].ID)

		padded, err := tbl.GetBySecondary(ctx, "owner", "alice ")
		require.NoError(t, err)
		require.Len(t, padded, 1)
		assert.Equal(t, "bio-101 ", padded[0].ID)
	})

	t.Run("Update", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "alice", Count: 1}, true))

		got, err := tbl.Update(ctx, "w1", func(w *Widget) error {
			w.Count++
			w.Owner = "bob"
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 2, got.Count)

		bob, err := tbl.GetBySecondary(ctx, "owner", "bob")
		require.NoError(t, err)
		require.Len(t, bob, 1)
		assert.Equal(t, 2, bob[0].Count)

		alice, err := tbl.GetBySecondary(ctx, "owner", "alice")
		require.NoError(t, err)
		assert.Empty(t, alice)
	})

	t.Run("UpdateAbsent", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		called := false
		got, err := tbl.Update(ctx, "missing", func(w *Widget) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, called)
	})

	t.Run("UpdateMutateError", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Count: 1}, true))
		boom := errors.New("boom")
		_, err := tbl.Update(ctx, "w1", func(w *Widget) error {
			w.Count = 100
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Count)
	})

	t.Run("UpdateKeyImmutable", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1"}, true))
		_, err := tbl.Update(ctx, "w1", func(w *Widget) error {
			w.ID = "w2"
			return nil
		})
		require.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1"}, true))

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := tbl.Update(ctx, "w1", func(w *Widget) error {
					w.Count++
					return nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, writers, got.Count)
	})

	t.Run("SwapConflict", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		name := tbl.Name()
		require.NoError(t, backend.Put(ctx, name, store.Item{Key: "k", Version: 1, Body: []byte(`{"id":"k"}`)}, true))

		err := backend.Swap(ctx, name, store.Item{Key: "k", Version: 3, Body: []byte(`{"id":"k"}`)}, 2)
		require.ErrorIs(t, err, types.ErrVersionConflict)

		err = backend.Swap(ctx, name, store.Item{Key: "absent", Version: 2, Body: []byte(`{"id":"absent"}`)}, 1)
		require.ErrorIs(t, err, types.ErrVersionConflict)

		require.NoError(t, backend.Swap(ctx, name, store.Item{Key: "k", Version: 2, Body: []byte(`{"id":"k"}`)}, 1))
		item, err := backend.Get(ctx, name, "k")
		require.NoError(t, err)
		assert.Equal(t, int64(2), item.Version)
	})

	t.Run("Delete", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1", Owner: "alice"}, true))
		require.NoError(t, tbl.Delete(ctx, "w1"))
		require.NoError(t, tbl.Delete(ctx, "w1"))

		got, err := tbl.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Nil(t, got)

		alice, err := tbl.GetBySecondary(ctx, "owner", "alice")
		require.NoError(t, err)
		assert.Empty(t, alice)

		require.NoError(t, tbl.Put(ctx, Widget{ID: "w1"}, true))
	})

	t.Run("ScanFiltered", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		const total = 130
		for i := 0; i < total; i++ {
			color := "blue"
			if i%2 == 0 {
				color = "red"
			}
			require.NoError(t, tbl.Put(ctx, Widget{ID: fmt.Sprintf("w%03d", i), Color: color, Count: i}, true))
		}

		seen := make(map[string]bool)
		for w, err := range tbl.ScanFiltered(ctx, nil) {
			require.NoError(t, err)
			seen[w.ID] = true
		}
		assert.Len(t, seen, total)

		red := 0
		for w, err := range tbl.ScanFiltered(ctx, func(w Widget) bool { return w.Color == "red" }) {
			require.NoError(t, err)
			assert.Equal(t, "red", w.Color)
			red++
		}
		assert.Equal(t, total/2, red)

		stopped := 0
		for _, err := range tbl.ScanFiltered(ctx, nil) {
			require.NoError(t, err)
			stopped++
			if stopped == 5 {
				break
			}
		}
		assert.Equal(t, 5, stopped)
	})

	t.Run("ScanWhileWriting", func(t *testing.T) {
		tbl := NewWidgetTable(t, backend)
		for i := 0; i < 10; i++ {
			require.NoError(t, tbl.Put(ctx, Widget{ID: fmt.Sprintf("w%d", i), Count: i}, true))
		}
		for w, err := range tbl.ScanFiltered(ctx, nil) {
			require.NoError(t, err)
			_, err := tbl.Update(ctx, w.ID, func(doc *Widget) error {
				doc.Count += 100
				return nil
			})
			require.NoError(t, err)
		}
		got, err := tbl.Get(ctx, "w3")
		require.NoError(t, err)
		assert.Equal(t, 103, got.Count)
	})
}
