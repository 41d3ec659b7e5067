// Package common provides shared setup for the auditor commands.
package common

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/config"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig = "config"
	FlagDebug  = "debug"
)

// ErrConfigRequired is returned when CommandDeps.Config is nil.
var ErrConfigRequired = errors.New("config is required")

// CommandDeps holds the dependencies every command needs.
type CommandDeps struct {
	Config *config.Config
	Logger logger.Logger
}

// Validate ensures all required dependencies are present.
func (d CommandDeps) Validate() error {
	if d.Config == nil {
		return ErrConfigRequired
	}
	if d.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// NewCommandDeps loads the configuration named by the --config flag and
// creates the logger.
func NewCommandDeps(cmd *cobra.Command) (CommandDeps, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	debug, _ := cmd.Flags().GetBool(FlagDebug)

	cfg, err := config.Load(config.NewViper(), path)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	logCfg := cfg.Logger
	if debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{Config: cfg, Logger: log}
	return deps, deps.Validate()
}
