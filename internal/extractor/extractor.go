// Package extractor parses fetched HTML into structured-data instances,
// on-page signals and outgoing links.
package extractor

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// Options controls extraction.
type Options struct {
	// AllowCrossOrigin keeps links to other origins.
	AllowCrossOrigin bool
	// RootOrigin is the origin links are compared against, usually the
	// audit's root URL. The page's final URL is used when empty.
	RootOrigin string
	// KnownType picks the declared type when a block lists several.
	// The first listed type is used when nil or when none is known.
	KnownType func(string) bool
}

// Result holds everything extracted from one page.
type Result struct {
	Document  Document
	Instances []domain.SchemaInstance
	Links     []string
}

// Extract parses page.Body. Pages that are not HTML produce an empty result
// with only the URLs filled in.
func Extract(page *domain.Page, opts Options) (*Result, error) {
	finalURL := page.FinalURL
	if finalURL == "" {
		finalURL = page.URL
	}

	res := &Result{Document: Document{URL: page.URL, FinalURL: finalURL}}
	if !isHTML(page.ContentType) || len(page.Body) == 0 {
		return res, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base := baseURL(doc, finalURL)

	res.Document = extractDocument(doc, page.URL, finalURL, base)
	res.Instances = append(res.Instances, extractJSONLD(doc, page.URL, opts)...)
	res.Instances = append(res.Instances, extractMicrodata(doc, page.URL, opts)...)
	res.Instances = append(res.Instances, extractRDFa(doc, page.URL, opts)...)
	origin := opts.RootOrigin
	if origin == "" {
		origin = finalURL
	}
	res.Links = extractLinks(doc, base, origin, opts.AllowCrossOrigin)

	return res, nil
}

// isHTML treats a missing content type as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// declaredType returns the type used for validation out of a block's types.
func declaredType(types []string, opts Options) string {
	if len(types) == 0 {
		return ""
	}
	if opts.KnownType != nil {
		for _, t := range types {
			if opts.KnownType(t) {
				return t
			}
		}
	}
	return types[0]
}

// vocabularyPrefixes are stripped from type and property names.
var vocabularyPrefixes = []string{
	"https://schema.org/",
	"http://schema.org/",
	"https://www.schema.org/",
	"http://www.schema.org/",
	"schema:",
}

func stripVocabulary(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range vocabularyPrefixes {
		if len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			return name[len(prefix):]
		}
	}
	return name
}

// splitTypes splits a space-separated itemtype or typeof attribute.
func splitTypes(attr string) []string {
	fields := strings.Fields(attr)
	types := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := stripVocabulary(f); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// addProperty stores a repeated property as a list.
func addProperty(props map[string]any, name string, value any) {
	existing, ok := props[name]
	if !ok {
		props[name] = value
		return
	}
	if list, isList := existing.([]any); isList {
		props[name] = append(list, value)
		return
	}
	props[name] = []any{existing, value}
}

// propertyValue reads an element's value the way Microdata and RDFa define it.
func propertyValue(s *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := s.Attr(attr); ok {
			return strings.TrimSpace(v)
		}
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

// owner returns the closest ancestor of s matching sel, excluding s itself.
func owner(s *goquery.Selection, sel string) *goquery.Selection {
	return s.Parent().Closest(sel)
}

func sameNode(a, b *goquery.Selection) bool {
	return a.Length() > 0 && b.Length() > 0 && a.Get(0) == b.Get(0)
}
