// Package fetcher retrieves pages for an audit. It paces requests through a
// per-host gate, retries transport failures and records redirect chains.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/metrics"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/retry"
)

// HostGate serializes and paces requests per host.
type HostGate interface {
	Acquire(ctx context.Context, host string) (release func(), err error)
}

// Fetcher performs HTTP GETs on behalf of one audit job.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	gate    HostGate
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Fetcher. The gate may be nil, in which case requests are not paced.
func New(cfg Config, gate HostGate, log logger.Logger, m *metrics.Metrics) *Fetcher {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
		},
		gate:    gate,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Client returns the HTTP client shared with robots.txt and sitemap lookups.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch retrieves rawURL. Any HTTP status yields a Page. Transport failures
// and timeouts are retried; once retries are exhausted the error is a
// *domain.FetchError. If ctx ends first, the context error is returned.
//
// Cancelling ctx stops new attempts but lets an attempt already on the wire
// run to completion or to its own timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.Page, error) {
	u, err := url.Parse(rawURL)
	if err == nil && u.Host == "" {
		err = errors.New("missing host")
	}
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = f.cfg.MaxRetries + 1
	cfg.InitialDelay = f.cfg.RetryBackoff
	cfg.OnRetry = func(attempt int, retryErr error) {
		f.metrics.RecordRetry()
		f.log.Debug("Retrying fetch",
			logger.URL(rawURL),
			logger.Int("attempt", attempt),
			logger.Error(retryErr),
		)
	}

	var page *domain.Page
	attempts, err := retry.Do(ctx, cfg, func(attemptCtx context.Context) error {
		p, attemptErr := f.attempt(attemptCtx, u)
		if attemptErr != nil {
			return attemptErr
		}
		page = p
		return nil
	})
	if err == nil {
		return page, nil
	}

	if ctx.Err() != nil && (errors.Is(err, retry.ErrContextCancelled) || errors.Is(err, ctx.Err())) {
		return nil, ctx.Err()
	}

	f.metrics.RecordFetchError()
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return nil, fetchErr
	}
	return nil, &domain.FetchError{URL: rawURL, Attempts: attempts, Err: err}
}

func (f *Fetcher) attempt(ctx context.Context, u *url.URL) (*domain.Page, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.Timeout)
	defer cancel()
	reqCtx, trace := withRedirectTrace(reqCtx)
	trace.gate = f.gate
	if err := trace.enter(ctx, u.Host); err != nil {
		return nil, err
	}
	defer trace.done()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &domain.FetchError{URL: u.String(), Attempts: 1, Err: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := f.now()
	resp, err := f.client.Do(req) //nolint:gosec // G704: URL from crawl target
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	f.metrics.RecordFetch(resp.StatusCode, f.now().Sub(start))

	if trace.exceeded {
		f.log.Debug("Redirect limit reached",
			logger.URL(u.String()),
			logger.Int("hops", trace.hops),
		)
	}

	return &domain.Page{
		URL:          u.String(),
		FinalURL:     resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		RedirectHops: trace.hops,
		FetchedAt:    start.UTC(),
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
	}, nil
}

// Get fetches rawURL like Fetch and returns the body of a 2xx response.
// It is used for auxiliary documents such as sitemaps.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if page.StatusCode < http.StatusOK || page.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get %s: status %d", rawURL, page.StatusCode)
	}
	return page.Body, nil
}
