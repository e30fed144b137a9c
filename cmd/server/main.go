// Command server serves CVOT snapshots read-only over HTTP.
//
// The weighted snapshot is served when present, otherwise the assembled one.
// Snapshots are reloaded when the file on disk changes, so a running
// reconcile publishes to the server without a restart. With sqlite_path
// configured, node listings, outgoing edges and stats are read from the
// SQLite mirror the engine keeps in sync.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/gocvot"
	"github.com/brunobiangulo/gocvot/metrics"
	"github.com/brunobiangulo/gocvot/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := gocvot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		slog.Error("applying environment", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("GOCVOT_API_KEY")
	corsOrigins := os.Getenv("GOCVOT_CORS_ORIGINS")

	var mirror mirrorReader
	if cfg.SQLitePath != "" {
		m, err := store.OpenMirror(cfg.SQLitePath)
		if err != nil {
			slog.Error("opening mirror", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer m.Close()
		mirror = m
	}

	prom := metrics.NewPrometheus()
	h := newHandler(newSnapshotCache(cfg.WeightedGraphPath, cfg.GraphPath), mirror, prom)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /cvot", h.handleGraph)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /nodes", h.handleNodes)
	mux.HandleFunc("GET /nodes/{id}", h.handleNode)
	mux.HandleFunc("GET /nodes/{id}/trace", h.handleTrace)
	mux.HandleFunc("GET /search", h.handleSearch)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", prom.Handler())

	handler := chain(mux,
		recoveryMiddleware,
		func(next http.Handler) http.Handler { return corsMiddleware(corsOrigins, next) },
		readOnlyMiddleware,
		func(next http.Handler) http.Handler { return authMiddleware(apiKey, next) },
		logMiddleware,
	)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr,
			"weighted", cfg.WeightedGraphPath, "graph", cfg.GraphPath, "mirror", cfg.SQLitePath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
