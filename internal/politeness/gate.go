package politeness

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// DefaultMinDelay is the minimum spacing between requests to one host.
const DefaultMinDelay = 500 * time.Millisecond

// DefaultUserAgent identifies the auditor to crawled sites.
const DefaultUserAgent = "SchemaAuditor/1.0 (+https://github.com/jonesrussell/north-cloud)"

// Config configures a Gate.
type Config struct {
	UserAgent     string
	MinDelay      time.Duration
	RespectRobots bool
}

// WithDefaults returns a copy of the config with zero values replaced.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MinDelay <= 0 {
		c.MinDelay = DefaultMinDelay
	}
	return c
}

// Gate combines robots.txt rules with per-host pacing. One Gate serves one job.
type Gate struct {
	cfg    Config
	robots *RobotsChecker
	log    logger.Logger

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

// hostSlot serializes requests to one host. token holds at most one holder;
// limiter spaces request starts by the host delay.
type hostSlot struct {
	token   chan struct{}
	limiter *rate.Limiter
}

// NewGate creates a Gate that fetches robots.txt with client.
func NewGate(cfg Config, client *http.Client, log logger.Logger) *Gate {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Gate{
		cfg:    cfg,
		robots: NewRobotsChecker(client, cfg.UserAgent),
		log:    log,
		hosts:  make(map[string]*hostSlot),
	}
}

// Allow reports whether rawURL may be fetched. Unparsable URLs are denied.
// When robots are not respected every well-formed URL is allowed.
func (g *Gate) Allow(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if !g.cfg.RespectRobots {
		return true
	}

	allowed, fetchErr := g.robots.IsAllowed(ctx, u.Scheme, u.Host, u.EscapedPath())
	if fetchErr != nil {
		g.log.Warn("robots.txt unreachable, allowing all",
			logger.String("host", u.Host),
			logger.Error(fetchErr),
		)
	}
	return allowed
}

// Delay returns the pacing interval for host: the larger of the configured
// minimum and the robots.txt Crawl-delay.
func (g *Gate) Delay(host string) time.Duration {
	delay := g.cfg.MinDelay
	if g.cfg.RespectRobots {
		if crawlDelay := g.robots.CrawlDelay(host); crawlDelay > delay {
			delay = crawlDelay
		}
	}
	return delay
}

// Acquire blocks until the caller may start a request to host. The returned
// release must be called once the request has finished.
func (g *Gate) Acquire(ctx context.Context, host string) (func(), error) {
	slot := g.slot(host)

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := slot.limiter.Wait(ctx); err != nil {
		<-slot.token
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot.token })
	}, nil
}

func (g *Gate) slot(host string) *hostSlot {
	host = strings.ToLower(host)

	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.hosts[host]; ok {
		return s
	}
	s := &hostSlot{
		token:   make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Every(g.Delay(host)), 1),
	}
	g.hosts[host] = s
	return s
}
