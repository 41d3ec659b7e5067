// Package politeness decides whether a URL may be fetched and paces requests
// per host according to robots.txt and the configured minimum delay.
package politeness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024

// RobotsChecker fetches robots.txt once per host and answers access queries
// from the cached rules. It is scoped to a single audit job.
type RobotsChecker struct {
	httpClient *http.Client
	userAgent  string

	mu    sync.RWMutex
	cache map[string]*robotsEntry
	group singleflight.Group
}

type robotsEntry struct {
	data     *robotstxt.RobotsData
	allowAll bool
}

// NewRobotsChecker creates a RobotsChecker.
func NewRobotsChecker(httpClient *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether path on host may be fetched. A non-nil error is
// always a *domain.RobotsFetchError and comes with allowed == true.
func (r *RobotsChecker) IsAllowed(ctx context.Context, scheme, host, path string) (bool, error) {
	entry, err := r.entry(ctx, scheme, host)
	if entry.allowAll || entry.data == nil {
		return true, err
	}
	if path == "" {
		path = "/"
	}
	return entry.data.TestAgent(path, r.userAgent), nil
}

// CrawlDelay returns the Crawl-delay for host, or 0 when none is known.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || entry.allowAll || entry.data == nil {
		return 0
	}

	group := entry.data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// entry returns the cached rules for host, fetching them at most once.
// Concurrent callers for the same host share the in-flight fetch.
func (r *RobotsChecker) entry(ctx context.Context, scheme, host string) (*robotsEntry, error) {
	host = strings.ToLower(host)

	r.mu.RLock()
	cached, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	type result struct {
		entry *robotsEntry
		err   error
	}

	v, _, _ := r.group.Do(host, func() (any, error) {
		r.mu.RLock()
		hit, found := r.cache[host]
		r.mu.RUnlock()
		if found {
			return result{entry: hit}, nil
		}

		entry, err := r.fetch(ctx, scheme, host)

		r.mu.Lock()
		r.cache[host] = entry
		r.mu.Unlock()

		return result{entry: entry, err: err}, nil
	})

	res := v.(result) //nolint:errcheck // singleflight only ever stores result
	return res.entry, res.err
}

func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) (*robotsEntry, error) {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + robotsTxtPath

	body, statusCode, err := r.doFetch(ctx, robotsURL)
	if err != nil {
		return &robotsEntry{allowAll: true}, &domain.RobotsFetchError{Host: host, Err: err}
	}

	return parseEntry(body, statusCode), nil
}

func (r *RobotsChecker) doFetch(ctx context.Context, robotsURL string) (body []byte, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, doErr := r.httpClient.Do(req) //nolint:gosec // G704: URL from crawl target
	if doErr != nil {
		return nil, 0, fmt.Errorf("fetch: %w", doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", readErr)
	}
	return body, resp.StatusCode, nil
}

// parseEntry treats anything other than a parsable 2xx body as allow-all.
func parseEntry(body []byte, statusCode int) *robotsEntry {
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return &robotsEntry{allowAll: true}
	}

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}
	return &robotsEntry{data: robots}
}
