package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// redisKeyPrefix namespaces cache keys in a shared Redis.
const redisKeyPrefix = "addrkit:"

// RedisStore implements Cache on a Redis server.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at url.
func NewRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return &RedisStore{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", key)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return eris.Wrapf(s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(), "redis: set %s", key)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return eris.Wrapf(s.client.Del(ctx, redisKeyPrefix+key).Err(), "redis: delete %s", key)
}

// Migrate checks connectivity. Redis needs no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: ping")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
