package echoweb

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/storage/kv"
)

func TestTabs_Get(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     string
		wantID bool // the tab keeps `id`
	}{
		{name: "no id", id: ""},
		{name: "not a uuid", id: "../../etc"},
		{name: "uuid", id: uuid.NewString(), wantID: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab, err := app.tabs.Get(ctx, tt.id)
			require.NoError(t, err)
			_, err = uuid.Parse(tab.ID)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantID, tab.ID == tt.id)

			again, err := app.tabs.Get(ctx, tab.ID)
			require.NoError(t, err)
			assert.Same(t, tab, again)
		})
	}
	assert.Equal(t, 3, app.tabs.Len())
}

// gatedScopes holds back the first load of scope `slow` until `release` is closed.
type gatedScopes struct {
	kv.Scopes
	slow    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedScopes) Scope(name string) kv.Storage {
	storage := g.Scopes.Scope(name)
	if name != g.slow {
		return storage
	}
	return gatedStorage{Storage: storage, gate: g}
}

type gatedStorage struct {
	kv.Storage
	gate *gatedScopes
}

func (s gatedStorage) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	s.gate.once.Do(func() {
		close(s.gate.entered)
		<-s.gate.release
	})
	return s.Storage.Load(ctx, keys...)
}

func TestTabs_Get_slowScope(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	gate := &gatedScopes{
		Scopes:  app.tabs.deps.Scopes,
		slow:    uuid.NewString(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	app.tabs.deps.Scopes = gate

	type got struct {
		tab *Tab
		err error
	}
	slow := make(chan got, 2)
	for i := 0; i < 2; i++ {
		go func() {
			tab, err := app.tabs.Get(ctx, gate.slow)
			slow <- got{tab, err}
		}()
	}
	<-gate.entered

	// other tabs are served while the slow scope loads
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := app.tabs.Get(ctx, uuid.NewString())
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get() of another tab waited for the slow scope")
	}

	close(gate.release)
	first, second := <-slow, <-slow
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Same(t, first.tab, second.tab, "one tab per scope")
	assert.Equal(t, 2, app.tabs.Len())
}

func TestTabs_Sweep(t *testing.T) {
	app := setup(t)
	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	b := app.newBrowser(t)
	b.login("student@stem.test")
	idle := app.newBrowser(t)
	idle.get("/")
	require.Equal(t, 2, app.tabs.Len())

	assert.Zero(t, app.tabs.Sweep(now.Add(30*time.Minute)))

	// only the idle tab goes
	now = now.Add(50 * time.Minute)
	b.get("/")
	assert.Equal(t, 1, app.tabs.Sweep(now.Add(20*time.Minute)))
	assert.Equal(t, 1, app.tabs.Len())

	assert.Equal(t, 1, app.tabs.Sweep(now.Add(2*time.Hour)))
	assert.Zero(t, app.tabs.Len())

	// a swept tab comes back with the session its scope still holds
	rec := b.get("/StudentDashboard")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "the scope is kept")
	p := decodePage(t, rec)
	assert.Equal(t, auth.State{LoggedIn: true, Role: session.RoleStudent}, p.State)
}

func TestTabs_isolation(t *testing.T) {
	app := setup(t)

	student := app.newBrowser(t)
	student.login("student@stem.test")
	teacher := app.newBrowser(t)
	teacher.login("teacher@stem.test")

	assert.NotEqual(t, student.cookie.Value, teacher.cookie.Value)
	assert.Equal(t, session.RoleStudent, student.tab().Client.CurrentRole())
	assert.Equal(t, session.RoleTeacher, teacher.tab().Client.CurrentRole())

	// logging out of one tab leaves the other alone
	student.post("/Logout", nil)
	assert.False(t, student.tab().Client.IsLoggedIn())
	assert.True(t, teacher.tab().Client.IsLoggedIn())
}

func TestTabs_Close(t *testing.T) {
	app := setup(t)
	b := app.newBrowser(t)
	b.login("student@stem.test")
	tab := b.tab()

	require.NoError(t, app.tabs.Close())
	assert.Zero(t, app.tabs.Len())
	assert.False(t, tab.timer.Active(), "the session timer is stopped")

	_, err := app.tabs.Get(context.Background(), tab.ID)
	assert.Equal(t, errTabsClosed, err)
}
