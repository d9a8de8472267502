package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrkit/internal/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	buf := []byte("v1")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v), "stored value must not alias caller buffer")

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Close())
}

func TestOpen_Memory(t *testing.T) {
	c, err := Open(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, c)
}

func TestOpen_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "open.db")
	c, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck

	require.NoError(t, c.Set(context.Background(), "k", []byte("v")))
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_BadRedisURL(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "redis", RedisURL: "not-a-redis-url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: parse url")
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("ADDRKIT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ADDRKIT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	s, err := NewRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(ctx))

	key := "test-" + t.Name()
	t.Cleanup(func() { s.Delete(ctx, key) }) //nolint:errcheck

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, key, []byte("v")))
	v, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}
