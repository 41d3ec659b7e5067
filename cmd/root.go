// Package cmd implements the command-line interface for the schema auditor.
package cmd

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/common"
	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/rules"
	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/serve"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = ""

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schema-auditor",
		Short: "Structured data and SEO auditor",
		Long: `Crawl a website, validate its schema.org structured data and on-page SEO,
score the findings and plan the fixes.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String(common.FlagConfig, "",
		"config file (default is ./config.yml or ./config/config.yml)")
	rootCmd.PersistentFlags().Bool(common.FlagDebug, false, "enable debug logging")

	version := resolveVersion()
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema-auditor version %s\n", version)
		},
	})
	rootCmd.AddCommand(serve.Command(version))
	rootCmd.AddCommand(audit.Command())
	rootCmd.AddCommand(rules.Command())

	return rootCmd
}

// Execute loads .env and runs the root command.
func Execute() error {
	// Missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	return NewRootCommand().ExecuteContext(context.Background())
}

func resolveVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
