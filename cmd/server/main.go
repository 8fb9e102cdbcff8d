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

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/ingest"
	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/report"
	"github.com/JonMunkholm/postventa/internal/source"
	"github.com/JonMunkholm/postventa/internal/store"
	"github.com/JonMunkholm/postventa/internal/telemetry"
	"github.com/JonMunkholm/postventa/internal/web"
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

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"header_marker", cfg.Source.HeaderMarker,
		"unit_keyword", cfg.Source.UnitKeyword,
		"upload_max_file_size", cfg.Upload.MaxFileSize,
		"api_key_required", cfg.Security.RequireAPIKey,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	switch db := st.(type) {
	case *store.PostgresStore:
		slog.Info("connected to database", "backend", db.Backend(), "name", db.DatabaseName())
	case *store.SQLiteStore:
		slog.Info("connected to database", "backend", db.Backend(), "path", db.Path())
	}

	metrics := telemetry.New()
	reader := source.NewReader(source.Options{Sheet: cfg.Source.Sheet})
	svc := ingest.NewService(reader, st, ingest.ConfigOptions(cfg, metrics))

	server := web.NewServer(cfg, web.Deps{
		Store:    st,
		Ingest:   svc,
		Renderer: report.NewRenderer(report.Options{Title: cfg.Report.Title}),
		Metrics:  metrics,
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

		// Let a running ingestion commit before the store closes
		if status := svc.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for ingestion to complete", "active", status.Active)
			if err := svc.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("ingestion did not complete in time", "error", err)
			} else {
				slog.Info("ingestion completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		st.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
