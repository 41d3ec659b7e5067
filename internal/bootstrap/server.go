package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/api"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/retention"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/server"
)

// SetupHTTPServer creates the HTTP server with the v1 API mounted.
func SetupHTTPServer(app *App, version string) *server.Server {
	cfg := app.Config.Server
	cfg.ServiceVersion = version

	audits := api.NewAuditHandler(app.Manager, app.Store, app.Logger)
	schemas := api.NewSchemaHandler(app.Validator, app.Logger)

	return server.New(cfg, app.Logger, func(router *gin.Engine) {
		api.SetupRoutes(router, audits, schemas, app.Metrics)
	})
}

// SetupRetention starts the retention sweeper when enabled. The returned
// func stops it.
func SetupRetention(app *App) (func(context.Context) error, error) {
	if !app.Config.Retention.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	sweeper, err := retention.New(app.Config.Retention, app.Manager, app.Logger)
	if err != nil {
		return nil, err
	}
	sweeper.Start()
	return sweeper.Stop, nil
}

// Serve runs the API until ctx ends or a shutdown signal arrives, then
// stops the sweeper and waits for running audits.
func Serve(ctx context.Context, app *App, version string) error {
	stopRetention, err := SetupRetention(app)
	if err != nil {
		return fmt.Errorf("retention: %w", err)
	}

	srv := SetupHTTPServer(app, version)
	runErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if stopErr := stopRetention(shutdownCtx); stopErr != nil {
		app.Logger.Warn("Retention sweeper did not stop cleanly", logger.Error(stopErr))
	}
	if closeErr := app.Close(shutdownCtx); closeErr != nil {
		app.Logger.Error("Failed to shut down cleanly", logger.Error(closeErr))
	}

	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	app.Logger.Info("Server exited")
	return nil
}
