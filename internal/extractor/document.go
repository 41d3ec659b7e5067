package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Image is one <img> element.
type Image struct {
	Src     string
	Alt     string
	HasAlt  bool
	Loading string
}

// Document carries the on-page signals the analyzer inspects.
type Document struct {
	URL             string
	FinalURL        string
	Title           string
	TitleCount      int
	MetaDescription string
	HasDescription  bool
	Canonical       string
	H1s             []string
	Images          []Image
	WordCount       int
	Lang            string
	Robots          string
}

// nonContentSelectors are removed before counting words.
const nonContentSelectors = "script, style, noscript, template"

func extractDocument(doc *goquery.Document, pageURL, finalURL string, base *url.URL) Document {
	d := Document{URL: pageURL, FinalURL: finalURL}

	titles := doc.Find("title")
	d.TitleCount = titles.Length()
	d.Title = collapse(titles.First().Text())

	d.MetaDescription, d.HasDescription = metaContent(doc, "description")
	d.Robots, _ = metaContent(doc, "robots")
	d.Lang, _ = doc.Find("html").Attr("lang")

	doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !hasToken(rel, "canonical") {
			return true
		}
		href, _ := s.Attr("href")
		d.Canonical = resolve(base, href)
		return false
	})

	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		d.H1s = append(d.H1s, collapse(s.Text()))
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		src, _ := s.Attr("src")
		loading, _ := s.Attr("loading")
		d.Images = append(d.Images, Image{
			Src:     resolve(base, src),
			Alt:     strings.TrimSpace(alt),
			HasAlt:  hasAlt,
			Loading: strings.ToLower(strings.TrimSpace(loading)),
		})
	})

	body := doc.Find("body").First().Clone()
	body.Find(nonContentSelectors).Remove()
	d.WordCount = countWords(body)

	return d
}

// countWords counts words per text node, so adjacent elements without
// whitespace between them do not merge their words.
func countWords(s *goquery.Selection) int {
	n := 0
	s.Find("*").AddBack().Contents().Each(func(_ int, c *goquery.Selection) {
		if node := c.Get(0); node != nil && node.Type == html.TextNode {
			n += len(strings.Fields(node.Data))
		}
	})
	return n
}

// metaContent finds <meta name=...> case-insensitively.
func metaContent(doc *goquery.Document, name string) (string, bool) {
	var (
		content string
		found   bool
	)
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
		c, _ := s.Attr("content")
		content, found = strings.TrimSpace(c), true
		return false
	})
	return content, found
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
