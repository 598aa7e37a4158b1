package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/RareDx/internal/classifier"
	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
	"github.com/JonMunkholm/RareDx/internal/logging"
	"github.com/JonMunkholm/RareDx/internal/session"
	"github.com/JonMunkholm/RareDx/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"config", cfg.String(),
		"classifier_max_concurrent", cfg.Classifier.MaxConcurrent,
		"breaker_enabled", cfg.Classifier.BreakerEnabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	client, err := classifier.New(cfg.Classifier, classifier.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create classifier client", "error", err)
		os.Exit(1)
	}

	previews := core.NewMemoryPreviewStore()

	// One orchestrator per browser session
	sessions := session.NewManager(cfg.Session, func(id string) *core.Orchestrator {
		return core.NewOrchestrator(client, previews, core.WithLogger(logger.With("session_id", id)))
	}, logger)

	server := web.NewServer(cfg, web.Deps{
		Sessions: sessions,
		Previews: previews,
		Catalog:  client,
		Health:   client,
		Logger:   logger,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for in-flight classifications to land before ending sessions
		status := client.Status()
		if status.Limiter.Active > 0 {
			slog.Info("waiting for classifications to complete", "active", status.Limiter.Active)
			if err := client.Drain(shutdownCtx); err != nil {
				slog.Warn("classifications did not complete in time", "error", err)
			} else {
				slog.Info("all classifications completed")
			}
		}

		sessions.Close()
		slog.Info("sessions closed", "previews_left", previews.Len())
	}()

	// Start server (uses addr from config internally)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}
