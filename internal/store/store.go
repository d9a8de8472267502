// Package store persists small cached blobs (the country catalog) across
// process restarts.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrkit/internal/config"
)

// ErrNotFound is returned by Get when the key has never been written or was
// deleted.
var ErrNotFound = eris.New("store: key not found")

// Cache is a string-keyed blob store. Set replaces the whole value atomically.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the backend named by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch cfg.Driver {
	case "memory":
		c = NewMemory()
	case "sqlite":
		c, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		c, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "redis":
		c, err = NewRedis(ctx, cfg.RedisURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
