package fetcher

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SitemapPath is the conventional sitemap location at a site root.
const SitemapPath = "/sitemap.xml"

// ErrNotSitemap is returned when a document is neither a urlset nor a sitemapindex.
var ErrNotSitemap = errors.New("not a sitemap document")

type xmlURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapKind identifies the root element of a sitemap document.
type SitemapKind int

// Sitemap document kinds.
const (
	SitemapURLSet SitemapKind = iota + 1
	SitemapIndex
)

// ParseSitemap parses a urlset or sitemapindex document and returns its kind
// together with the listed <loc> values, trimmed and in document order.
func ParseSitemap(body []byte) (SitemapKind, []string, error) {
	root, err := rootElement(body)
	if err != nil {
		return 0, nil, err
	}

	switch root {
	case "urlset":
		var set xmlURLSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return 0, nil, fmt.Errorf("parse sitemap: %w", err)
		}
		locs := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			locs = appendLoc(locs, u.Loc)
		}
		return SitemapURLSet, locs, nil
	case "sitemapindex":
		var index xmlSitemapIndex
		if err := xml.Unmarshal(body, &index); err != nil {
			return 0, nil, fmt.Errorf("parse sitemap index: %w", err)
		}
		locs := make([]string, 0, len(index.Sitemaps))
		for _, s := range index.Sitemaps {
			locs = appendLoc(locs, s.Loc)
		}
		return SitemapIndex, locs, nil
	default:
		return 0, nil, fmt.Errorf("%w: root element %q", ErrNotSitemap, root)
	}
}

func appendLoc(locs []string, loc string) []string {
	if trimmed := strings.TrimSpace(loc); trimmed != "" {
		return append(locs, trimmed)
	}
	return locs
}

func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: empty document", ErrNotSitemap)
		}
		if err != nil {
			return "", fmt.Errorf("parse sitemap: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// BodyGetter returns the body of a successful GET.
type BodyGetter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// DiscoverSitemap fetches origin's sitemap.xml and returns up to limit page
// URLs. A sitemap index is followed one level deep; child sitemaps that fail
// are skipped. The result preserves document order without duplicates.
func DiscoverSitemap(ctx context.Context, g BodyGetter, origin string, limit int) ([]string, error) {
	body, err := g.Get(ctx, strings.TrimRight(origin, "/")+SitemapPath)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}

	kind, locs, err := ParseSitemap(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(urls []string) bool {
		for _, u := range urls {
			if limit > 0 && len(out) >= limit {
				return false
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
		return true
	}

	if kind == SitemapURLSet {
		add(locs)
		return out, nil
	}

	for _, child := range locs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		childBody, getErr := g.Get(ctx, child)
		if getErr != nil {
			continue
		}
		childKind, childLocs, parseErr := ParseSitemap(childBody)
		if parseErr != nil || childKind != SitemapURLSet {
			continue
		}
		if !add(childLocs) {
			break
		}
	}
	return out, nil
}
