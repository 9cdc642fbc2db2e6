// Package bootstrap wires the startup sequence: configuration, logging,
// database connectivity and schema migrations.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/offerbot/core/buildinfo"
	"github.com/m3rciful/offerbot/core/config"
	"github.com/m3rciful/offerbot/core/database"
	"github.com/m3rciful/offerbot/core/logger"
)

// Resources holds everything the application needs after startup.
type Resources struct {
	Cfg *config.Config
	DB  *sqlx.DB
}

// Init performs the full startup sequence and returns ready resources.
func Init(ctx context.Context, cfgPath, migrationsDir string) (*Resources, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Profile:     cfg.Logging.Profile,
		Dir:         cfg.Logging.Dir,
		File:        cfg.Logging.File,
		DebugSample: cfg.Logging.DebugSample,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.L.InfoContext(ctx, "starting",
		"status", "ok",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"run_mode", cfg.Telegram.RunMode,
	)

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.RunMigrations(ctx, &cfg.Database, migrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Resources{Cfg: cfg, DB: db}, nil
}

// Close releases resources acquired by Init.
func (r *Resources) Close() {
	if r == nil {
		return
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	_ = logger.Shutdown()
}
