package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "countries-cache", []byte(`{"countries":[]}`)))

	v, err := st.Get(ctx, "countries-cache")
	require.NoError(t, err)
	assert.JSONEq(t, `{"countries":[]}`, string(v))
}

func TestSQLite_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SetReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("one")))
	require.NoError(t, st.Set(ctx, "k", []byte("two")))

	v, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(v))

	var n int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM kv_cache`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("v")))
	require.NoError(t, st.Delete(ctx, "k"))

	_, err := st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, st.Delete(ctx, "k"))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Set(ctx, "k", []byte("kept")))
	require.NoError(t, st.Close())

	st, err = NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	v, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(v))
}
