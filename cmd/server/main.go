// Package main implements the entry point for the LingoShop API server,
// which runs the background task backbone, the storefront API gateway, and
// the HTTP API for task management and sync streaming.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/platform/logger"
	"github.com/lingoshop/lingoshop-api/internal/platform/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// run wires the whole application together: configuration, logging,
// database (with migrations), dependency injection, startup recovery, and
// finally the HTTP server. Kept separate from main so it can return errors.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Task.WorkerCount,
		"sync_locales", cfg.Sync.Locales)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := postgres.RunMigrations(db, appLogger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
