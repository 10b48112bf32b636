package session

import "context"

// Persisted keys of the tab-scoped credential storage.
const (
	TokenKey = "Token"
	RoleKey  = "Role"
)

// Storage is a synchronous key/value scope that outlives in-memory state across reloads of the same tab.
// Writing several keys must be atomic.
type Storage interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Store(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}
