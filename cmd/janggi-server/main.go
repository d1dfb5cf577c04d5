// Command janggi-server runs the demo HTTP API over internal/engine
// (spec.md §6 supplemented "demo surface").
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"janggi/internal/engine"
	httpserver "janggi/internal/server/http"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	modelPath := flag.String("model", "", "path to an .onnx model file")
	weightsPath := flag.String("weights", "", "path to a weight bundle (spec.md §6 weight-file format)")
	visits := flag.Int("visits", 800, "search visits per think request")
	threads := flag.Int("threads", 1, "search worker threads")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	cfg := engine.DefaultConfig()
	cfg.Verbose = *verbose
	cfg.SearchVisits = *visits
	cfg.NumThreads = *threads
	cfg.ModelPath = *modelPath

	eng := engine.New(cfg)
	defer eng.Close()

	if *weightsPath != "" {
		if err := eng.LoadWeights(*weightsPath); err != nil {
			eng.Log.Warn("continuing with heuristic evaluator", "err", err)
		}
	}

	handler := httpserver.NewHandler(eng.Log, eng)
	srv := httpserver.NewServer(handler)

	eng.Log.Info("janggi-server listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
