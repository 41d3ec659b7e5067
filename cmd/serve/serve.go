// Package serve implements the command that runs the auditor HTTP API.
package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/common"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// Command returns the serve command. version is reported by /health.
func Command(version string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit API server",
		Long: `Run the HTTP API that starts audits, reports their progress and serves
reports, issues and roadmaps. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			if port != 0 {
				deps.Config.Server.Port = port
			}

			return run(cmd.Context(), deps, version)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func run(ctx context.Context, deps common.CommandDeps, version string) error {
	app, err := bootstrap.New(ctx, deps.Config, deps.Logger)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	deps.Logger.Info("Starting schema auditor",
		logger.String("version", version),
		logger.Int("port", deps.Config.Server.Port),
		logger.Bool("persistent_store", deps.Config.Database.DSN != ""),
	)
	return bootstrap.Serve(ctx, app, version)
}
