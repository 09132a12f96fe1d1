// main.go — Entry point for the aetheria-server ingest API.
// Serves the scan-viewer backend: vendor report ingestion, image proxying,
// and customer/scan persistence through the REST store.
package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/banding"
	"github.com/aetheria-dev/aetheria/internal/config"
	"github.com/aetheria-dev/aetheria/internal/ingest"
	"github.com/aetheria-dev/aetheria/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aetheria-server: %v\n", err)
		os.Exit(2)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aetheria-server: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	bands, err := banding.LoadOrDefault(cfg.BandsFile)
	if err != nil {
		log.Fatal("loading bands config", zap.Error(err))
	}

	srv := newServer(cfg, log, bands)
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		srv.store = store.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, log)
	} else {
		log.Warn("persistence disabled: SUPABASE_URL / key not configured")
	}
	srv.vendor = ingest.NewClient(log)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
