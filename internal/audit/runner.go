package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/analyzer"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/extractor"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/frontier"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/metrics"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/politeness"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/scoring"
)

const (
	robotsSkipReason = "robots"
	sitemapParent    = "sitemap.xml"
)

// pageDone is published by a worker once a page has been fetched and
// processed. The discovery loop enqueues Links before marking URL visited.
type pageDone struct {
	URL   string
	Depth int
	Links []string
}

// Runner executes audit jobs end to end.
type Runner struct {
	opts      Options
	validator *schema.Validator
	analyzer  *analyzer.Analyzer
	response  *analyzer.Analyzer
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRunner creates a Runner. A nil metrics collector disables metrics.
func NewRunner(opts Options, validator *schema.Validator, log logger.Logger, m *metrics.Metrics) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		opts:      opts.withDefaults(),
		validator: validator,
		analyzer:  analyzer.New(log),
		response:  analyzer.New(log, analyzer.ResponseChecks()...),
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// crawl bundles the per-job collaborators.
type crawl struct {
	job      *Job
	gate     *politeness.Gate
	fetcher  *fetcher.Fetcher
	frontier *frontier.Frontier
	log      logger.Logger

	mu     sync.RWMutex
	origin string
}

// siteOrigin is the origin links must share to be followed. It starts as the
// root URL and follows the root's redirects.
func (c *crawl) siteOrigin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

func (c *crawl) setSiteOrigin(rawURL string) {
	origin, err := frontier.Origin(rawURL)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = origin
}

// Run executes job and blocks until it reaches a terminal status. The
// returned report reflects whatever data was gathered, including for
// cancelled and failed jobs.
func (r *Runner) Run(ctx context.Context, job *Job) *domain.Report {
	started := r.now()
	ctx, cancel := context.WithTimeout(ctx, r.opts.JobTimeout)
	defer cancel()

	info := job.Snapshot()
	log := r.log.With(logger.JobID(info.ID), logger.URL(info.RootURL))

	job.start(started)
	r.metrics.AuditStarted()
	log.Info("Audit started",
		logger.Int("max_pages", info.Config.MaxPages),
		logger.Int("max_depth", info.Config.MaxDepth),
		logger.Bool("respect_robots", info.Config.RespectRobots),
	)

	c := r.newCrawl(job, log)
	lastErr := r.crawl(ctx, c)
	job.setFrontierStats(c.frontier.Enqueued(), c.frontier.Drops())

	job.setPhase(domain.PhaseExtracting)
	r.checkSiteExpectations(job)

	job.setPhase(domain.PhaseAnalyzing)
	job.registry.Add(job.titles.Issues()...)

	job.setPhase(domain.PhaseScoring)
	pages := job.pagesFetched()
	job.setInitialScores(scoring.Compute(scoring.Normalize(job.registry.Issues()), pages))

	status, reason := r.outcome(ctx, info, pages, lastErr)
	finished := r.now()

	report := buildReport(job)
	report.Job.Status = status
	report.Job.Reason = reason
	report.Job.FinishedAt = &finished
	job.setReport(report)
	job.finish(status, reason, finished)

	for _, issue := range report.Issues {
		r.metrics.RecordIssue(string(issue.Category))
	}
	r.metrics.AuditFinished(string(status), finished.Sub(started))
	log.Info("Audit finished",
		logger.String("status", string(status)),
		logger.String("reason", reason),
		logger.Int("pages", pages),
		logger.Int("issues", len(report.Issues)),
		logger.Int("score", report.Scores.Overall),
		logger.Duration("duration", finished.Sub(started)),
	)
	return report
}

func (r *Runner) outcome(ctx context.Context, info domain.CrawlJob, pages int, lastErr error) (domain.JobStatus, string) {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.JobCancelled, fmt.Sprintf("audit exceeded the %s time limit", r.opts.JobTimeout)
	case ctx.Err() != nil:
		return domain.JobCancelled, "audit cancelled"
	case pages == 0 && lastErr != nil:
		return domain.JobFailed, fmt.Sprintf("no pages could be fetched from %s: %v", info.RootURL, lastErr)
	case pages == 0:
		return domain.JobFailed, fmt.Sprintf("no pages could be fetched from %s", info.RootURL)
	}
	return domain.JobCompleted, ""
}

func (r *Runner) newCrawl(job *Job, log logger.Logger) *crawl {
	info := job.Snapshot()
	robotsClient := &http.Client{Timeout: r.opts.Fetcher.Timeout}
	gate := politeness.NewGate(politeness.Config{
		UserAgent:     r.opts.Fetcher.UserAgent,
		MinDelay:      r.opts.MinDelay,
		RespectRobots: info.Config.RespectRobots,
	}, robotsClient, log)

	return &crawl{
		job:     job,
		gate:    gate,
		fetcher: fetcher.New(r.opts.Fetcher, gate, log, r.metrics),
		frontier: frontier.New(frontier.Config{
			MaxPages: info.Config.MaxPages,
			MaxDepth: info.Config.MaxDepth,
		}),
		log:    log,
		origin: info.RootURL,
	}
}

// crawl seeds the frontier and drives the worker pool until the frontier
// drains or ctx ends. It returns the last fetch error seen.
func (r *Runner) crawl(ctx context.Context, c *crawl) error {
	info := c.job.Snapshot()

	r.enqueue(ctx, c, info.RootURL, 0, "")
	if info.Config.FollowSitemap {
		r.seedSitemap(ctx, c)
	}

	events := make(chan pageDone, r.opts.Fetcher.Workers)
	discovered := make(chan struct{})
	go func() {
		defer close(discovered)
		for ev := range events {
			for _, link := range ev.Links {
				r.enqueue(ctx, c, link, ev.Depth+1, ev.URL)
			}
			c.frontier.MarkVisited(ev.URL)
			c.job.setEnqueued(c.frontier.Enqueued())
		}
	}()

	var (
		errMu   sync.Mutex
		lastErr error
	)
	pool := fetcher.NewPool(r.opts.Fetcher.Workers, c.log)
	_ = pool.Run(ctx, c.frontier, func(ctx context.Context, _ int, entry domain.FrontierEntry) {
		links, err := r.process(ctx, c, entry)
		if err != nil {
			errMu.Lock()
			lastErr = err
			errMu.Unlock()
		}
		events <- pageDone{URL: entry.URL, Depth: entry.Depth, Links: links}
	})
	close(events)
	<-discovered
	c.frontier.Close()

	return lastErr
}

// enqueue sends a discovered URL through the politeness gate into the
// frontier. Disallowed URLs are recorded as skipped and never fetched.
func (r *Runner) enqueue(ctx context.Context, c *crawl, rawURL string, depth int, parent string) {
	if ctx.Err() != nil {
		return
	}
	if !c.gate.Allow(ctx, rawURL) {
		if c.frontier.Skip(rawURL, depth, parent, robotsSkipReason) {
			c.job.countRobotsSkip()
			r.metrics.RecordRobotsDenied()
			c.log.Debug("URL disallowed by robots.txt", logger.URL(rawURL))
		}
		return
	}
	res := c.frontier.Enqueue(rawURL, depth, parent)
	if !res.Accepted && res.Reason != frontier.DropDuplicate {
		c.log.Debug("URL not enqueued",
			logger.URL(rawURL),
			logger.String("reason", string(res.Reason)),
		)
	}
	c.job.setEnqueued(c.frontier.Enqueued())
}

func (r *Runner) seedSitemap(ctx context.Context, c *crawl) {
	info := c.job.Snapshot()
	origin, err := frontier.Origin(info.RootURL)
	if err != nil {
		return
	}

	urls, err := fetcher.DiscoverSitemap(ctx, c.fetcher, origin, info.Config.MaxPages)
	if err != nil {
		c.log.Info("No usable sitemap", logger.Error(err))
		return
	}

	seeded := 0
	for _, u := range urls {
		if !info.Config.AllowCrossOrigin && !frontier.SameOrigin(info.RootURL, u) {
			continue
		}
		r.enqueue(ctx, c, u, 1, sitemapParent)
		seeded++
	}
	c.job.countSitemapURLs(seeded)
	c.log.Debug("Seeded frontier from sitemap", logger.Int("urls", seeded))
}

// process fetches one entry and runs extraction, validation and page checks
// on it. It returns the links to follow.
func (r *Runner) process(ctx context.Context, c *crawl, entry domain.FrontierEntry) ([]string, error) {
	page, err := c.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, nil
		}
		c.job.countFetchError()
		c.job.registry.Add(analyzer.FetchFailed(entry.URL, err))
		c.log.Warn("Fetch failed", logger.URL(entry.URL), logger.Error(err))
		return nil, err
	}
	page.Depth = entry.Depth

	info := c.job.Snapshot()
	finalURL := page.FinalURL
	if finalURL == "" {
		finalURL = page.URL
	}

	if entry.Depth == 0 {
		c.setSiteOrigin(finalURL)
	}
	origin := c.siteOrigin()

	// A redirect target belongs to this entry unless another entry already
	// knows it. Pages that left the site are not audited either.
	owned := c.frontier.Claim(entry.Key, finalURL)
	offsite := !info.Config.AllowCrossOrigin && !frontier.SameOrigin(origin, finalURL)
	if !owned || offsite {
		c.job.registry.Add(r.response.Analyze(analyzer.Input{Page: page, IsRoot: entry.Depth == 0})...)
		page.Body = nil
		page.SchemaTypes = []string{}
		c.job.addPage(page, false)
		c.log.Debug("Redirect target not audited",
			logger.URL(entry.URL),
			logger.String("final_url", finalURL),
			logger.Bool("offsite", offsite),
		)
		return nil, nil
	}

	res, err := extractor.Extract(page, extractor.Options{
		AllowCrossOrigin: info.Config.AllowCrossOrigin,
		RootOrigin:       origin,
		KnownType:        r.validator.Table().Known,
	})
	if err != nil {
		c.log.Warn("Extraction failed", logger.URL(entry.URL), logger.Error(err))
		res = &extractor.Result{Document: extractor.Document{URL: page.URL, FinalURL: finalURL}}
	}

	page.Title = res.Document.Title
	page.SchemaTypes = []string{}
	for _, in := range res.Instances {
		r.metrics.RecordSchemaInstance(in.Format)
		if !in.SyntaxValid {
			c.log.Debug("Invalid structured data", logger.Error(&domain.ParseError{
				Page: in.Page, Format: in.Format, Err: errors.New(in.ParseError),
			}))
		}
		found := r.validator.Validate(in)
		c.job.registry.Add(found...)
		c.job.inventory.add(in, found)
		if in.Type != "" && !slices.Contains(page.SchemaTypes, in.Type) {
			page.SchemaTypes = append(page.SchemaTypes, in.Type)
		}
	}

	in := analyzer.Input{Page: page, Doc: res.Document, IsRoot: entry.Depth == 0}
	c.job.registry.Add(r.analyzer.Analyze(in)...)
	if in.IsContentPage() {
		c.job.titles.Add(finalURL, res.Document.Title)
	}

	page.Body = nil
	c.job.addPage(page, true)

	// Error pages are not mined for links.
	if !in.IsContentPage() {
		return nil, nil
	}
	return res.Links, nil
}

// checkSiteExpectations applies the site-level schema expectations to every
// content page once the crawl is over.
func (r *Runner) checkSiteExpectations(job *Job) {
	for _, p := range job.auditedPages() {
		if p.StatusCode < http.StatusOK || p.StatusCode >= http.StatusMultipleChoices {
			continue
		}
		job.registry.Add(r.validator.CheckPage(p.URL, p.Depth == 0, p.SchemaTypes)...)
	}
}
