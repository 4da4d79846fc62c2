package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	repo "github.com/joseph-ayodele/production-tracker/internal/repository"
)

// ConnectDB opens the configured store, pings it and creates missing tables.
// With inmem set it ignores the configured store and uses a private sqlite database.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, inmem bool, logger *slog.Logger) (*repo.DB, error) {
	rc := repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}
	if inmem {
		rc.Driver, rc.DSN = repo.DriverSQLite, ":memory:"
	}

	db, err := repo.Open(ctx, rc, logger)
	if err != nil {
		return nil, err
	}
	if err := PingDB(ctx, db, logger, 5*time.Second); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, db, timeout, logger)
}
