package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/use-agent/speedsheet/api"
	"github.com/use-agent/speedsheet/artifact"
	"github.com/use-agent/speedsheet/bundle"
	"github.com/use-agent/speedsheet/cache"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/config"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	// .env is best effort; variables already in the environment win.
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("speedsheet-server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Capture.Engine,
		"maxConcurrent", cfg.Capture.MaxConcurrent,
	)

	// ── 3. Initialise capture engine ────────────────────────────────
	var capt capture.Capturer
	switch cfg.Capture.Engine {
	case "fixture":
		capt = capture.NewFixtureCapturer()
	default:
		slog.Error("unknown capture engine", "engine", cfg.Capture.Engine)
		os.Exit(1)
	}

	// ── 4. Initialise bundler and artifact store ────────────────────
	bnd := bundle.NewZipBundler()

	store, err := artifact.NewStore(cfg.Artifact.Dir)
	if err != nil {
		slog.Error("failed to initialise artifact store", "error", err)
		os.Exit(1)
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	store.StartJanitor(janitorCtx, cfg.Artifact.SweepInterval, cfg.Artifact.TTL)

	// ── 4b. Initialise capture cache ────────────────────────────────
	var cc *cache.Cache
	if cfg.Capture.CacheEntries > 0 {
		cc = cache.New(cfg.Capture.CacheEntries)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(capt, bnd, store, cc, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("speedsheet-server stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
