package dig_container

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoweb "github.com/trezcool/stemlearn/apps/web/echo"
	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	logsvc "github.com/trezcool/stemlearn/services/logger"
	"github.com/trezcool/stemlearn/storage/kv"
)

type ScopesLoggerParam struct {
	dig.In
	Logger core.Logger `name:"scopesLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "WEB : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newScopesLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "SCOPES : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newHTTPClient(conf *core.Config) *http.Client {
	return &http.Client{Timeout: conf.API.Timeout}
}

func newScopes(conf *core.Config, loggerParam ScopesLoggerParam) kv.Scopes {
	scopes, err := kv.OpenScopes(context.Background(), conf.Session.StoreURL, conf.Session.ScopeTTL)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening tab scopes: %v", err), err)
	}
	if conf.Session.StoreURL == "" {
		loggerParam.Logger.Warn("no session store configured; sessions will not survive restarts")
	}
	return scopes
}

type tabsParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Routes     *route.Table
	Metrics    *echoweb.Metrics
	Scopes     kv.Scopes
	HTTPClient *http.Client
	Validate   *validator.Validate
	Translator ut.Translator
}

func newTabs(p tabsParams) *echoweb.Tabs {
	return echoweb.NewTabs(echoweb.TabsDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Routes:     p.Routes,
		Metrics:    p.Metrics,
		Scopes:     p.Scopes,
		HTTPClient: p.HTTPClient,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

func newServer(conf *core.Config, logger core.Logger, routes *route.Table, tabs *echoweb.Tabs, metrics *echoweb.Metrics) *echoweb.Server {
	return echoweb.NewServer(echoweb.ServerDeps{
		Conf:    conf,
		Logger:  logger,
		Routes:  routes,
		Tabs:    tabs,
		Metrics: metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newScopesLogger, dig.Name("scopesLogger")))
	must(c.Provide(newHTTPClient))
	must(c.Provide(newScopes))
	must(c.Provide(auth.NewValidator))
	must(c.Provide(route.Default))
	must(c.Provide(echoweb.NewMetrics))
	must(c.Provide(newTabs))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
