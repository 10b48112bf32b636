package echoweb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/storage/kv"
	"github.com/trezcool/stemlearn/tests"
)

const testCookie = "stemlearn_tab"

type testApp struct {
	server  *Server
	tabs    *Tabs
	metrics *Metrics
	backend *testutil.Backend
	redis   *miniredis.Miniredis
}

type option func(conf *core.Config)

func withLifetime(d time.Duration) option {
	return func(conf *core.Config) { conf.Session.Lifetime = d }
}

func withLoginRateLimit(n int) option {
	return func(conf *core.Config) { conf.Server.LoginRateLimit = n }
}

// setup starts a web server talking to a fake backend. Tab scopes live in a miniredis.
func setup(t *testing.T, opts ...option) *testApp {
	t.Helper()
	backend := testutil.NewBackend(t)
	mr := miniredis.RunT(t)

	conf := &core.Config{
		Env:      "TEST",
		TestMode: true,
		API:      core.APIConfig{BaseURL: backend.URL, Timeout: 5 * time.Second},
		Session: core.SessionConfig{
			Lifetime:    time.Hour,
			ScopeTTL:    time.Hour,
			ScopeCookie: testCookie,
		},
		Server: core.ServerConfig{LoginRateWindow: time.Minute},
	}
	for _, opt := range opts {
		opt(conf)
	}

	logger := testutil.NewLogger(t)
	validate, translator := auth.NewValidator()
	metrics := NewMetrics()
	routes := route.Default()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tabs := NewTabs(TabsDeps{
		Conf:       conf,
		Logger:     logger,
		Routes:     routes,
		Metrics:    metrics,
		Scopes:     kv.NewRedisScopes(client, conf.Session.ScopeTTL),
		HTTPClient: &http.Client{Timeout: conf.API.Timeout},
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = tabs.Close() })

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Routes:         routes,
		Tabs:           tabs,
		Metrics:        metrics,
		DisableReqLogs: true,
	})
	return &testApp{server: server, tabs: tabs, metrics: metrics, backend: backend, redis: mr}
}

// browser is one browser tab: it keeps the scope cookie between requests.
type browser struct {
	t      *testing.T
	app    *testApp
	cookie *http.Cookie
}

func (app *testApp) newBrowser(t *testing.T) *browser {
	return &browser{t: t, app: app}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.app.server.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, path, form)
}

func (b *browser) login(email string) {
	b.t.Helper()
	rec := b.post(route.PathLogin, url.Values{"email": {email}, "password": {"secret12"}})
	if rec.Code != http.StatusSeeOther {
		b.t.Fatalf("login(%s): code = %d; body %s", email, rec.Code, rec.Body.String())
	}
}

// token reads the credential the tab's scope holds.
func (b *browser) token() string {
	b.t.Helper()
	if b.cookie == nil {
		return ""
	}
	v, err := b.app.redis.Get("stemlearn:" + b.cookie.Value + ":Token")
	if err != nil {
		return ""
	}
	return v
}

func (b *browser) tab() *Tab {
	b.t.Helper()
	if b.cookie == nil {
		b.t.Fatal("tab(): no cookie yet")
	}
	tab, err := b.app.tabs.Get(context.Background(), b.cookie.Value)
	if err != nil {
		b.t.Fatalf("tab(): %v", err)
	}
	return tab
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) page {
	t.Helper()
	var p page
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decodePage(): %v; body %s", err, rec.Body.String())
	}
	return p
}

// page is Page with its data left raw.
type page struct {
	View    string          `json:"view"`
	Path    string          `json:"path"`
	Params  route.Params    `json:"params"`
	Nav     []NavItem       `json:"nav"`
	State   auth.State      `json:"state"`
	Notices []core.Notice   `json:"notices"`
	Data    json.RawMessage `json:"data"`
}

func (p page) navLabels() []string {
	labels := make([]string, len(p.Nav))
	for i, item := range p.Nav {
		labels[i] = item.Label
	}
	return labels
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) httpErr {
	t.Helper()
	var e httpErr
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decodeErr(): %v; body %s", err, rec.Body.String())
	}
	return e
}
