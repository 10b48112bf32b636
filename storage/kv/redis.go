package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stemlearn:"

// RedisStorage keeps a scope in redis so that it survives restarts of the process holding it.
// Every write refreshes the scope TTL; the scope ends once it lapses.
type RedisStorage struct {
	client *redis.Client
	scope  string
	ttl    time.Duration
}

func NewRedisStorage(client *redis.Client, scope string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, scope: scope, ttl: ttl}
}

// OpenRedis connects to the redis server at `url` (eg. redis://localhost:6379/0).
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (s *RedisStorage) key(k string) string {
	return keyPrefix + s.scope + ":" + k
}

func (s *RedisStorage) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	rkeys := make([]string, len(keys))
	for i, k := range keys {
		rkeys[i] = s.key(k)
	}
	res, err := s.client.MGet(ctx, rkeys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "loading scope")
	}
	for i, v := range res {
		if str, ok := v.(string); ok {
			values[keys[i]] = str
		}
	}
	return values, nil
}

func (s *RedisStorage) Store(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	return errors.Wrap(err, "storing scope")
}

func (s *RedisStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rkeys := make([]string, len(keys))
	for i, k := range keys {
		rkeys[i] = s.key(k)
	}
	return errors.Wrap(s.client.Del(ctx, rkeys...).Err(), "removing scope")
}
