package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/storage/kv"
	"github.com/trezcool/stemlearn/tests"
)

type recordingNavigator struct {
	mu      sync.Mutex
	paths   []string
	pending string // not followed yet
	notices []core.Notice
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	n.pending = path
}

func (n *recordingNavigator) Discard() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = ""
}

func (n *recordingNavigator) Pending() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

func (n *recordingNavigator) Notify(notice core.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func (n *recordingNavigator) Notices() []core.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Notice(nil), n.notices...)
}

type fixture struct {
	client   *Client
	storage  *kv.MemoryStorage
	store    *session.Store
	timer    *session.Timer
	notifier *Notifier
	nav      *recordingNavigator

	mu       sync.Mutex
	expiries []ExpiryCause
}

func (f *fixture) Expiries() []ExpiryCause {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ExpiryCause(nil), f.expiries...)
}

func setup(t *testing.T, baseURL string, lifetime time.Duration) *fixture {
	return setupWithStorage(t, baseURL, lifetime, kv.NewMemoryStorage())
}

func setupWithStorage(t *testing.T, baseURL string, lifetime time.Duration, storage *kv.MemoryStorage) *fixture {
	t.Helper()
	logger := testutil.NewLogger(t)
	validate, translator := NewValidator()

	f := &fixture{
		storage:  storage,
		store:    session.NewStore(context.Background(), storage, logger),
		timer:    session.NewTimer(),
		notifier: NewNotifier(),
		nav:      new(recordingNavigator),
	}
	client, err := NewClient(Options{
		BaseURL:    baseURL,
		Store:      f.store,
		Timer:      f.timer,
		Notifier:   f.notifier,
		Navigator:  f.nav,
		Routes:     route.Default(),
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Lifetime:   lifetime,
		OnExpire: func(cause ExpiryCause) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.expiries = append(f.expiries, cause)
		},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	f.client = client
	t.Cleanup(f.timer.CancelCurrent)
	return f
}

// eventually polls `cond` for up to a second.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never met: %s", msg)
}
