package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core"
)

var (
	errEmptyToken = errors.New("token is required")
	errNoRole     = errors.New("role is required")
)

// Session is the authenticated state of one tab.
type Session struct {
	Token     string
	Role      Role
	ExpiresAt time.Time // derived, never persisted
}

// Store is the single source of truth for "am I logged in, and as what role".
// The in-memory pair is authoritative for the lifetime of the Store; Storage failures are logged and swallowed.
type Store struct {
	mu      sync.RWMutex
	token   string
	role    Role
	expires time.Time

	storage Storage
	logger  core.Logger
}

// NewStore returns a Store restored from whatever `storage` still holds for this scope.
// A half-written or otherwise invalid pair is treated as absent and cleared.
func NewStore(ctx context.Context, storage Storage, logger core.Logger) *Store {
	s := &Store{storage: storage, logger: logger}

	values, err := storage.Load(ctx, TokenKey, RoleKey)
	if err != nil {
		logger.Warn(fmt.Sprintf("loading credentials: %v", err), err)
		return s
	}
	token, role := values[TokenKey], values[RoleKey]
	if token == "" && role == "" {
		return s
	}

	parsed, err := ParseRole(role)
	if token == "" || err != nil {
		logger.Warn("discarding inconsistent stored credentials")
		if err = storage.Remove(ctx, TokenKey, RoleKey); err != nil {
			logger.Warn(fmt.Sprintf("removing credentials: %v", err), err)
		}
		return s
	}
	s.token, s.role = token, parsed
	return s
}

// Save writes both token and role. No reader ever observes one without the other.
func (s *Store) Save(ctx context.Context, token string, role Role) error {
	if token == "" {
		return core.NewValidationError(errEmptyToken, core.FieldError{Field: TokenKey, Error: errEmptyToken.Error()})
	}
	if !role.Valid() {
		return core.NewValidationError(errNoRole, core.FieldError{Field: RoleKey, Error: errNoRole.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.role, s.expires = token, role, time.Time{}

	if err := s.storage.Store(ctx, map[string]string{TokenKey: token, RoleKey: string(role)}); err != nil {
		s.logger.Error(fmt.Sprintf("storing credentials: %v", err), errors.Wrap(err, "storing credentials"))
	}
	return nil
}

// Clear removes both fields. Clearing an empty Store is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

// ClearIf clears the Store only while it still holds `token`, reporting whether it did.
func (s *Store) ClearIf(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return false
	}
	s.clearLocked(ctx)
	return true
}

func (s *Store) clearLocked(ctx context.Context) {
	if s.token == "" && s.role == RoleNone {
		return
	}
	s.token, s.role, s.expires = "", RoleNone, time.Time{}

	if err := s.storage.Remove(ctx, TokenKey, RoleKey); err != nil {
		s.logger.Error(fmt.Sprintf("removing credentials: %v", err), errors.Wrap(err, "removing credentials"))
	}
}

// SetExpiresAt records the derived expiry of the current session.
func (s *Store) SetExpiresAt(token string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.expires = t
	}
}

func (s *Store) CurrentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) CurrentRole() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Current returns a consistent snapshot of the session and whether there is one.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return Session{}, false
	}
	return Session{Token: s.token, Role: s.role, ExpiresAt: s.expires}, true
}
