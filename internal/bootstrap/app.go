// Package bootstrap wires configuration into the running components of the
// auditor: logger, rule table, report store and audit manager.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/config"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/metrics"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

// App holds the long-lived components shared by the serve and audit commands.
type App struct {
	Config    *config.Config
	Logger    logger.Logger
	Metrics   *metrics.Metrics
	Validator *schema.Validator
	Store     storage.ReportStore
	Manager   *audit.Manager

	closeStore func() error
}

// New builds an App from cfg. Close must be called to release the store.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	validator, err := SetupValidator(cfg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := SetupStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	runner := audit.NewRunner(cfg.Options(), validator, log, m)

	return &App{
		Config:     cfg,
		Logger:     log,
		Metrics:    m,
		Validator:  validator,
		Store:      store,
		Manager:    audit.NewManager(runner, store, log),
		closeStore: closeStore,
	}, nil
}

// Close waits for running audits to finish or ctx to end, then closes the store.
func (a *App) Close(ctx context.Context) error {
	shutdownErr := a.Manager.Shutdown(ctx)
	if err := a.closeStore(); err != nil {
		a.Logger.Error("Failed to close report store", logger.Error(err))
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown audits: %w", shutdownErr)
	}
	return nil
}

// SetupValidator loads the rule table from rules.path, or the built-in
// table when no path is configured.
func SetupValidator(cfg *config.Config) (*schema.Validator, error) {
	table, err := schema.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return schema.NewValidator(table), nil
}
