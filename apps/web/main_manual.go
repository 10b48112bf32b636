package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	echoweb "github.com/trezcool/stemlearn/apps/web/echo"
	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	logsvc "github.com/trezcool/stemlearn/services/logger"
	"github.com/trezcool/stemlearn/storage/kv"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	scopes, err := kv.OpenScopes(context.Background(), conf.Session.StoreURL, conf.Session.ScopeTTL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening tab scopes: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := auth.NewValidator()
	routes := route.Default()
	metrics := echoweb.NewMetrics()

	tabs := echoweb.NewTabs(echoweb.TabsDeps{
		Conf:       conf,
		Logger:     logger,
		Routes:     routes,
		Metrics:    metrics,
		Scopes:     scopes,
		HTTPClient: &http.Client{Timeout: conf.API.Timeout},
		Validate:   validate,
		Translator: translator,
	})
	server := echoweb.NewServer(echoweb.ServerDeps{
		Conf:    conf,
		Logger:  logger,
		Routes:  routes,
		Tabs:    tabs,
		Metrics: metrics,
	})

	run(conf, logger, server)
}
