// Package database provides access to the Airflow metadata database.
package database

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v4/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
)

// NewDB opens a connection pool against the metadata database and verifies
// it with a ping.
func NewDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	slog.InfoContext(ctx, "Connected to database", "host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name)
	return db, nil
}

// CloseDB closes the connection pool, logging any error.
func CloseDB(ctx context.Context, db *sqlx.DB) {
	if err := db.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing database connection", "error", err)
	}
}
