package echoweb

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/unrolled/secure"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/route"
)

const (
	pathLogout  = "/Logout"
	pathMetrics = "/metrics"

	sweepEvery = time.Minute
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Routes         *route.Table
		Tabs           *Tabs
		Metrics        *Metrics
		DisableReqLogs bool
	}

	// Server is the STEMLearn web front end: it renders the route table's views for each tab
	// and submits the tabs' forms to the backend.
	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		guardian *route.Guard

		errors    chan error
		shutdown  chan os.Signal
		sweepCtx  context.Context
		stopSweep context.CancelFunc
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		guardian: route.NewGuard(deps.Routes),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.sweepCtx, s.stopSweep = context.WithCancel(context.Background())
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(canonicalPath(s.deps.Routes))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.Use(echo.WrapMiddleware(secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           conf.Env == "PROD",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger)
	s.app.Debug = conf.Debug

	s.app.GET(pathMetrics, echo.WrapHandler(s.deps.Metrics.Handler()))

	views := make(map[string]route.Route)
	for _, r := range s.deps.Routes.Routes() {
		views[r.View] = r
		s.app.GET(r.Path, s.view(r), s.tabMiddleware, pendingRedirect, s.guard(r))
	}

	limiter := s.authLimiter()
	s.app.POST(route.PathLogin, s.login, s.tabMiddleware, limiter)
	s.app.POST(route.PathSignup, s.signup, s.tabMiddleware, limiter)
	s.app.POST(pathLogout, s.logout, s.tabMiddleware)
	s.app.POST(route.PathEnroll, s.enroll, s.tabMiddleware, s.guard(views["enroll"]))
	s.app.POST(route.PathQuiz, s.submitQuiz(views["quiz"]), s.tabMiddleware, s.guard(views["quiz"]))
}

// authLimiter throttles login and signup submissions per tab, or per IP for requests without one.
func (s *Server) authLimiter() echo.MiddlewareFunc {
	conf := s.deps.Conf
	if conf.Server.LoginRateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	limiter := httprate.Limit(
		conf.Server.LoginRateLimit,
		conf.Server.LoginRateWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if cookie, err := r.Cookie(conf.Session.ScopeCookie); err == nil && cookie.Value != "" {
				return "tab:" + cookie.Value, nil
			}
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return "ip:" + r.RemoteAddr, nil
			}
			return "ip:" + host, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many attempts, try again later"}`))
		}),
	)
	return echo.WrapMiddleware(limiter)
}

// Start sweeps idle tabs in the background and serves until Shutdown or Close.
// Serving errors are reported on Errors.
func (s *Server) Start() {
	go s.deps.Tabs.Run(s.sweepCtx, sweepEvery)

	s.deps.Logger.Info("web server listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT and SIGTERM.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s.shutdown
}

// Shutdown stops the server gracefully, then closes every tab.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.Shutdown(ctx); err != nil {
		return err
	}
	return s.closeTabs()
}

// Close stops the server immediately, then closes every tab.
func (s *Server) Close() error {
	if err := s.app.Close(); err != nil {
		return err
	}
	return s.closeTabs()
}

func (s *Server) closeTabs() error {
	s.stopSweep()
	return s.deps.Tabs.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
