package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/offerbot/core/logger"
)

// RunMigrations applies pending schema migrations from the given directory.
// A database already at the latest version is not an error.
func RunMigrations(ctx context.Context, cfg *Config, dir string) error {
	if dir == "" {
		dir = "migrations"
	}
	m, err := migrate.New("file://"+dir, cfg.URL())
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.MIG.WarnContext(ctx, "migrate_close",
				"status", "fail",
				"err", errors.Join(srcErr, dbErr),
			)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.MIG.InfoContext(ctx, "migrate_done", "status", "skip")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	logger.MIG.InfoContext(ctx, "migrate_done",
		"status", "ok",
		"version", version,
		"dirty", dirty,
	)
	return nil
}
