// Package frontier is the per-job crawl queue. It owns the seen-URL set that
// guarantees each normalized URL is enqueued at most once.
package frontier

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
)

// ErrInvalidURL is returned for URLs that cannot be crawled.
var ErrInvalidURL = errors.New("invalid url")

// trackingParams never change page content and are dropped from dedup keys.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize returns the dedup key for rawURL: lowercase scheme and host,
// default port removed, dot-segments resolved, trailing slash removed, query
// sorted without tracking parameters, fragment dropped. Only http and https
// URLs are accepted and the scheme is kept as is.
func Normalize(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	key := url.URL{
		Scheme:   scheme,
		Host:     normalizeHost(u, scheme),
		Path:     normalizePath(u.Path),
		RawQuery: cleanQuery(u.Query()),
	}
	return key.String(), nil
}

// crawlURL is the URL to request for a discovered link: the link as found,
// without its fragment. An empty path becomes "/". key is returned when
// rawURL does not parse.
func crawlURL(rawURL, key string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return key
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	return u.String()
}

// Origin returns scheme://host[:port] of a normalized or raw URL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme + "://" + normalizeHost(u, scheme), nil
}

// SameOrigin reports whether two URLs share scheme, host and port.
func SameOrigin(a, b string) bool {
	oa, errA := Origin(a)
	ob, errB := Origin(b)
	return errA == nil && errB == nil && oa == ob
}

func normalizeHost(u *url.URL, scheme string) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || defaultPorts[scheme] == port {
		return hostname
	}
	return hostname + ":" + port
}

func cleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, tracking := trackingParams[strings.ToLower(key)]; !tracking {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, val := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(val))
		}
	}
	return strings.Join(parts, "&")
}

// normalizePath keeps "/" for the root and trims trailing slashes elsewhere.
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return cleaned
	}
	return strings.TrimRight(cleaned, "/")
}
