package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/config"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

// SetupStore returns the Postgres report store when database.dsn is set and
// an in-memory store otherwise. The returned func closes the connection.
func SetupStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.ReportStore, func() error, error) {
	if cfg.Database.DSN == "" {
		log.Info("Using in-memory report store")
		return storage.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := storage.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection: %w", err)
	}

	store := storage.NewPostgresStore(db)
	if err = store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate report store: %w", err)
	}

	log.Info("Using PostgreSQL report store")
	return store, db.Close, nil
}
