package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	logsvc "github.com/trezcool/stemlearn/services/logger"
	"github.com/trezcool/stemlearn/storage/kv"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "CLI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// without a store URL every command starts logged out
	scopes, err := kv.OpenScopes(context.Background(), conf.Session.StoreURL, conf.Session.ScopeTTL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening scopes: %v", err), err)
	}

	validate, translator := auth.NewValidator()
	cli := commandLine{
		conf:       conf,
		logger:     logger,
		scopes:     scopes,
		routes:     route.Default(),
		httpClient: &http.Client{Timeout: conf.API.Timeout},
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = scopes.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
