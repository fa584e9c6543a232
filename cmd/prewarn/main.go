package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klasvik/prewarn/internal/adapters/http/ops"
	"github.com/klasvik/prewarn/internal/app"
	"github.com/klasvik/prewarn/internal/config"
	"github.com/klasvik/prewarn/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

const defaultConfigPath = "prewarn.yaml"

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := defaultConfigPath
	if env := os.Getenv("PREWARN_CONFIG"); env != "" {
		configPath = env
	}

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// The store serves runtime-editable settings (cursors, control codes)
	// and watches the file so operator edits apply without a restart.
	store, err := config.NewStore(configPath, log)
	if err != nil {
		os.Stderr.WriteString("failed to open config store: " + err.Error() + "\n")
		return
	}

	pipeline := app.New(cfg, store)
	if err := pipeline.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start pipeline: " + err.Error() + "\n")
		return
	}

	if err := store.Watch(); err != nil {
		log.Warn(ctx, "config file watch unavailable, edits need a restart", logger.Error(err))
	}

	mux := http.NewServeMux()
	ops.NewServer(pipeline).Register(mux)

	srv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting ops HTTP server", logger.String("addr", cfg.OpsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("ops HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "ops HTTP server shutdown failed", logger.Error(err))
	}
	_ = store.Unwatch()
	if err := pipeline.Stop(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "pipeline shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "goodbye")
}
