package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a scoped key/value store whose multi-key writes are atomic.
type Storage interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Store(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*RedisStorage)(nil)
)

// Scopes hands out one Storage per named scope, eg. per browser tab.
type Scopes interface {
	Scope(name string) Storage
	Close() error
}

// MemoryScopes keeps every scope in process memory. Scopes do not outlive the process.
type MemoryScopes struct{}

func (MemoryScopes) Scope(string) Storage { return NewMemoryStorage() }
func (MemoryScopes) Close() error         { return nil }

// RedisScopes keeps every scope in redis, each expiring `ttl` after its last write.
type RedisScopes struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScopes(client *redis.Client, ttl time.Duration) *RedisScopes {
	return &RedisScopes{client: client, ttl: ttl}
}

func (s *RedisScopes) Scope(name string) Storage {
	return NewRedisStorage(s.client, name, s.ttl)
}

func (s *RedisScopes) Close() error {
	return s.client.Close()
}

// OpenScopes returns redis scopes when `url` is set, memory scopes otherwise.
func OpenScopes(ctx context.Context, url string, ttl time.Duration) (Scopes, error) {
	if url == "" {
		return MemoryScopes{}, nil
	}
	client, err := OpenRedis(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewRedisScopes(client, ttl), nil
}
