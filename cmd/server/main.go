package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/proconverter/proconverter-lemons/internal/app"
	"github.com/proconverter/proconverter-lemons/internal/archive"
	"github.com/proconverter/proconverter-lemons/internal/config"
	"github.com/proconverter/proconverter-lemons/internal/imaging"
	"github.com/proconverter/proconverter-lemons/internal/license"
	"github.com/proconverter/proconverter-lemons/internal/logging"
	"github.com/proconverter/proconverter-lemons/internal/packager"
	"github.com/proconverter/proconverter-lemons/internal/server"
	"github.com/proconverter/proconverter-lemons/internal/session"
)

const janitorInterval = 1 * time.Minute

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupWorkDir(cfg *config.Config) {
	// Anything under the work dir from a previous run is unreachable:
	// download tokens live in memory.
	if err := app.SweepScratch(cfg.WorkDir); err != nil {
		slog.Error("Failed to sweep stale scratch", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		slog.Error("Failed to create work directory", "error", err)
		os.Exit(1)
	}
}

func runGracefulShutdown(srv *server.Server, registry *session.Registry) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		registry.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	setupWorkDir(cfg)

	registry := session.NewRegistry(cfg.WorkDir, cfg.SessionTTL, clock)
	registry.StartJanitor(janitorInterval)

	pkg, err := packager.NewPackager(filepath.Join(cfg.WorkDir, "downloads"))
	if err != nil {
		slog.Error("Failed to create packager", "error", err)
		os.Exit(1)
	}

	gate := license.NewGate(license.NewClient(cfg.LicenseAPIURL, cfg.LicenseAPIKey))

	svc := app.NewService(
		registry,
		archive.NewInspector(cfg.WorkDir, cfg.MaxArchiveEntries()),
		imaging.NewQualifier(cfg.MinImageDimension),
		pkg,
		gate,
		app.NewDownloadStore(),
		cfg.WorkDir,
	)

	srv := server.NewServer(cfg, svc)
	done := runGracefulShutdown(srv, registry)

	if err := srv.Start(); err != nil {
		slog.Info("Server stopped", "reason", err)
	}

	<-done
	slog.Info("Shutdown complete")
}
