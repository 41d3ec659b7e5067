// Package audit implements the command that audits one site from the
// terminal and prints its scores, issues and roadmap.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/schema-auditor/cmd/common"
	internalaudit "github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

const progressInterval = 2 * time.Second

// ErrScoreBelowThreshold is returned when --fail-under is set and the
// overall score is lower.
var ErrScoreBelowThreshold = errors.New("overall score below threshold")

type options struct {
	maxPages    int
	maxDepth    int
	noRobots    bool
	noSitemap   bool
	crossOrigin bool
	output      string
	severity    string
	failUnder   int
}

// Command returns the audit command.
func Command() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit a site and print the report",
		Long: `Crawl a site from the given root URL, validate its structured data and
on-page SEO, and print scores, issues and a prioritized roadmap.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			report, err := run(cmd.Context(), deps, args[0], opts)
			if err != nil {
				return err
			}

			r := NewReportRenderer(cmd.OutOrStdout())
			r.Render(report, domain.Severity(opts.severity))

			if opts.output != "" {
				if writeErr := writeReport(opts.output, report); writeErr != nil {
					return writeErr
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", opts.output)
			}

			if opts.failUnder > 0 && report.Scores.Overall < opts.failUnder {
				return fmt.Errorf("%w: %d < %d", ErrScoreBelowThreshold, report.Scores.Overall, opts.failUnder)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.maxPages, "max-pages", internalaudit.DefaultMaxPages, "maximum pages to fetch (1-500)")
	f.IntVar(&opts.maxDepth, "max-depth", internalaudit.DefaultMaxDepth, "maximum link depth from the root (1-10)")
	f.BoolVar(&opts.noRobots, "ignore-robots", false, "do not honour robots.txt")
	f.BoolVar(&opts.noSitemap, "no-sitemap", false, "do not seed the crawl from sitemap.xml")
	f.BoolVar(&opts.crossOrigin, "cross-origin", false, "follow links to other hosts")
	f.StringVarP(&opts.output, "output", "o", "", "write the JSON report to this file")
	f.StringVar(&opts.severity, "severity", "", "only list issues of this severity (critical, warning, info)")
	f.IntVar(&opts.failUnder, "fail-under", 0, "exit non-zero when the overall score is below this value")

	return cmd
}

func run(ctx context.Context, deps common.CommandDeps, root string, opts options) (*domain.Report, error) {
	app, err := bootstrap.New(ctx, deps.Config, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	defer func() { _ = app.Close(context.WithoutCancel(ctx)) }()

	respectRobots := !opts.noRobots
	followSitemap := !opts.noSitemap
	job, err := app.Manager.Start(ctx, internalaudit.StartRequest{
		RootURL:          root,
		MaxPages:         opts.maxPages,
		MaxDepth:         opts.maxDepth,
		RespectRobots:    &respectRobots,
		FollowSitemap:    &followSitemap,
		AllowCrossOrigin: opts.crossOrigin,
	})
	if err != nil {
		return nil, err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportProgress(sigCtx, app.Manager, job.ID, deps.Logger)

	report, err := app.Manager.Wait(sigCtx, job.ID)
	if err == nil {
		return report, nil
	}

	// Interrupted: stop crawling and keep what was collected.
	if _, cancelErr := app.Manager.Cancel(job.ID); cancelErr != nil {
		return nil, cancelErr
	}
	return app.Manager.Wait(context.WithoutCancel(ctx), job.ID)
}

func reportProgress(ctx context.Context, m *internalaudit.Manager, jobID string, log logger.Logger) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, err := m.Progress(jobID)
			if err != nil || p.Status.Terminal() {
				return
			}
			log.Info("Audit in progress",
				logger.JobID(jobID),
				logger.String("phase", string(p.Phase)),
				logger.Int("percent", p.Percent),
				logger.Int("pages_fetched", p.PagesFetched),
			)
		}
	}
}

func writeReport(path string, report *domain.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
