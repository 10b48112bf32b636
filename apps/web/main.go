package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/trezcool/stemlearn/core"
)

func main() {
	di := flag.String("di", "dig", "how dependencies are wired: dig | manual")
	flag.Parse()

	switch *di {
	case "dig":
		startWithDig()
	case "manual":
		startManual()
	default:
		log.Fatalf("unknown -di %q", *di)
	}
}

func serveDebug(conf *core.Config) error {
	return http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux)
}

func shutdownContext(conf *core.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
