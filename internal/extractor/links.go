package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// baseURL honours <base href> and falls back to the page's final URL.
func baseURL(doc *goquery.Document, finalURL string) *url.URL {
	page, err := url.Parse(finalURL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, refErr := url.Parse(strings.TrimSpace(href)); refErr == nil {
			return page.ResolveReference(ref)
		}
	}
	return page
}

// resolve returns href as an absolute URL, or "" when it cannot be resolved.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractLinks returns the distinct http(s) targets of a[href], without
// fragments, in document order. Links outside origin are dropped unless
// allowed.
func extractLinks(doc *goquery.Document, base *url.URL, origin string, crossOrigin bool) []string {
	if base == nil {
		return nil
	}
	site, err := url.Parse(origin)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, parseErr := url.Parse(strings.TrimSpace(href))
		if parseErr != nil {
			return
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		target.RawFragment = ""

		scheme := strings.ToLower(target.Scheme)
		if scheme != "http" && scheme != "https" {
			return
		}
		if !crossOrigin && !sameOrigin(site, target) {
			return
		}

		link := target.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(hostPort(a), hostPort(b))
}

func hostPort(u *url.URL) string {
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port == "" {
		return u.Hostname()
	}
	return u.Hostname() + ":" + port
}
