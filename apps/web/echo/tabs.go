package echoweb

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/services/lms"
	"github.com/trezcool/stemlearn/storage/kv"
)

var nowFunc = time.Now // mockable

// Tab is everything one browser tab owns: its credential scope, session timer,
// login state, auth client and pending navigation.
type Tab struct {
	ID      string
	Client  *auth.Client
	LMS     *lms.Service
	Pending *auth.Pending

	timer       *session.Timer
	nav         *NavBar
	unsubscribe func()

	mu       sync.Mutex
	lastSeen time.Time
}

func (tab *Tab) touch(now time.Time) {
	tab.mu.Lock()
	defer tab.mu.Unlock()
	tab.lastSeen = now
}

func (tab *Tab) idleSince() time.Time {
	tab.mu.Lock()
	defer tab.mu.Unlock()
	return tab.lastSeen
}

func (tab *Tab) close() {
	tab.unsubscribe()
	tab.timer.CancelCurrent()
}

type TabsDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Routes     *route.Table
	Metrics    *Metrics
	Scopes     kv.Scopes
	HTTPClient *http.Client
	Validate   *validator.Validate
	Translator ut.Translator
}

// Tabs is the registry of live tabs, keyed by their scope ID.
type Tabs struct {
	deps TabsDeps

	mu     sync.Mutex
	tabs   map[string]*Tab
	closed bool
}

var errTabsClosed = errors.New("tabs closed")

func NewTabs(deps TabsDeps) *Tabs {
	return &Tabs{deps: deps, tabs: make(map[string]*Tab)}
}

// Get returns the tab identified by `id`, creating it when it is not live.
// A tab created for a known scope restores the session its storage still holds.
// An invalid `id` gets a fresh scope; the returned tab carries the ID actually used.
// Opening a tab reads its scope without holding up requests of the other tabs.
func (ts *Tabs) Get(ctx context.Context, id string) (*Tab, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	if tab, ok := ts.live(id); ok {
		return tab, nil
	}

	opened, err := ts.open(ctx, id)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.closed {
		opened.close()
		return nil, errTabsClosed
	}
	if tab, ok := ts.tabs[id]; ok {
		// opened concurrently by another request of the same tab
		opened.close()
		tab.touch(nowFunc())
		return tab, nil
	}
	ts.tabs[id] = opened
	ts.deps.Metrics.Tabs.Set(float64(len(ts.tabs)))
	return opened, nil
}

func (ts *Tabs) live(id string) (*Tab, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	tab, ok := ts.tabs[id]
	if ok {
		tab.touch(nowFunc())
	}
	return tab, ok
}

func (ts *Tabs) open(ctx context.Context, id string) (*Tab, error) {
	d := ts.deps
	tab := &Tab{
		ID:       id,
		Pending:  new(auth.Pending),
		timer:    session.NewTimer(),
		lastSeen: nowFunc(),
	}

	client, err := auth.NewClient(auth.Options{
		BaseURL:    d.Conf.API.BaseURL,
		HTTPClient: d.HTTPClient,
		Store:      session.NewStore(ctx, d.Scopes.Scope(id), d.Logger),
		Timer:      tab.timer,
		Notifier:   auth.NewNotifier(),
		Navigator:  tab.Pending,
		Routes:     d.Routes,
		Logger:     d.Logger,
		Validate:   d.Validate,
		Translator: d.Translator,
		Lifetime:   d.Conf.Session.Lifetime,
		OnExpire: func(cause auth.ExpiryCause) {
			d.Metrics.SessionExpiries.WithLabelValues(string(cause)).Inc()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening tab")
	}
	tab.Client = client
	tab.LMS = lms.NewService(client)
	tab.nav = NewNavBar(d.Routes, client.State())
	tab.unsubscribe = client.Subscribe(tab.nav.Update)
	return tab, nil
}

// Len returns how many tabs are live.
func (ts *Tabs) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tabs)
}

// Sweep closes the tabs idle for longer than the scope TTL and returns how many it closed.
func (ts *Tabs) Sweep(now time.Time) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var swept int
	for id, tab := range ts.tabs {
		if now.Sub(tab.idleSince()) > ts.deps.Conf.Session.ScopeTTL {
			tab.close()
			delete(ts.tabs, id)
			swept++
		}
	}
	ts.deps.Metrics.Tabs.Set(float64(len(ts.tabs)))
	return swept
}

// Run sweeps idle tabs every `every` until `ctx` is done.
func (ts *Tabs) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ts.Sweep(nowFunc()); n > 0 {
				ts.deps.Logger.Debug(fmt.Sprintf("swept %d idle tabs", n))
			}
		}
	}
}

// Close closes every tab. Sessions stay in their storage.
func (ts *Tabs) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.closed = true
	for id, tab := range ts.tabs {
		tab.close()
		delete(ts.tabs, id)
	}
	ts.deps.Metrics.Tabs.Set(0)
	return ts.deps.Scopes.Close()
}
