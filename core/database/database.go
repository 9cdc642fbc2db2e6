// Package database owns the Postgres connection lifecycle: configuration,
// connect with readiness wait, and schema migrations.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/offerbot/core/logger"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`

	MaxOpenConns    int    `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifeMin  int    `yaml:"conn_max_life_min" envconfig:"DB_CONN_MAX_LIFE_MIN"`
	ConnectWaitSec  int    `yaml:"connect_wait_sec" envconfig:"DB_CONNECT_WAIT_SEC"`
	MigrationsTable string `yaml:"migrations_table" envconfig:"DB_MIGRATIONS_TABLE"`
}

// Normalize fills defaults and validates required fields.
func (c *Config) Normalize() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.User == "" || c.Name == "" {
		return fmt.Errorf("database: user and name are required")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 16
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 4
	}
	if c.ConnMaxLifeMin <= 0 {
		c.ConnMaxLifeMin = 30
	}
	if c.ConnectWaitSec <= 0 {
		c.ConnectWaitSec = 30
	}
	return nil
}

// DSN renders the connection string for lib/pq.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL renders a postgres:// URL, used by golang-migrate.
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.MigrationsTable != "" {
		q.Set("x-migrations-table", c.MigrationsTable)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens a pool and waits until Postgres answers pings or the
// configured wait window runs out.
func Connect(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeMin) * time.Minute)

	if err := waitForPostgres(ctx, db, time.Duration(cfg.ConnectWaitSec)*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.DB.InfoContext(ctx, "db_connected",
		"status", "ok",
		"host", cfg.Host,
		"port", cfg.Port,
		"db", cfg.Name,
	)
	return db, nil
}

func waitForPostgres(ctx context.Context, db *sqlx.DB, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	attempt := 0
	for {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("postgres not ready after %s: %w", wait, err)
		}
		logger.DB.WarnContext(ctx, "db_wait",
			"status", "retry",
			"attempts", attempt,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
