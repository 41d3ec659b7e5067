package audit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/frontier"
)

// Request defaults applied when a field is left zero.
const (
	DefaultMaxPages = 100
	DefaultMaxDepth = 3
)

// StartRequest is the caller-facing audit configuration. Nil booleans take
// their defaults: robots are respected, sitemaps are followed.
type StartRequest struct {
	RootURL          string `json:"root_url"           binding:"required"`
	MaxPages         int    `json:"max_pages"`
	MaxDepth         int    `json:"max_depth"`
	RespectRobots    *bool  `json:"respect_robots"`
	FollowSitemap    *bool  `json:"follow_sitemap"`
	AllowCrossOrigin bool   `json:"allow_cross_origin"`
}

// Validate checks the request and returns the normalized root URL and job
// configuration. Every rejection is a *domain.ConfigError.
func (r StartRequest) Validate() (string, domain.JobConfig, error) {
	cfg := domain.JobConfig{
		MaxPages:         r.MaxPages,
		MaxDepth:         r.MaxDepth,
		RespectRobots:    boolOr(r.RespectRobots, true),
		FollowSitemap:    boolOr(r.FollowSitemap, true),
		AllowCrossOrigin: r.AllowCrossOrigin,
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}

	root, err := validateRoot(r.RootURL)
	if err != nil {
		return "", domain.JobConfig{}, err
	}
	if cfg.MaxPages < domain.MinPages || cfg.MaxPages > domain.MaxPages {
		return "", domain.JobConfig{}, &domain.ConfigError{
			Field:   "max_pages",
			Message: fmt.Sprintf("must be between %d and %d", domain.MinPages, domain.MaxPages),
		}
	}
	if cfg.MaxDepth < domain.MinDepth || cfg.MaxDepth > domain.MaxDepth {
		return "", domain.JobConfig{}, &domain.ConfigError{
			Field:   "max_depth",
			Message: fmt.Sprintf("must be between %d and %d", domain.MinDepth, domain.MaxDepth),
		}
	}
	return root, cfg, nil
}

func validateRoot(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &domain.ConfigError{Field: "root_url", Message: "is required"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &domain.ConfigError{Field: "root_url", Message: "is not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &domain.ConfigError{Field: "root_url", Message: "must use http or https"}
	}
	if u.Hostname() == "" {
		return "", &domain.ConfigError{Field: "root_url", Message: "must include a host"}
	}

	root, err := frontier.Normalize(raw)
	if err != nil {
		return "", &domain.ConfigError{Field: "root_url", Message: err.Error()}
	}
	return root, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
