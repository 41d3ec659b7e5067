package analyzer

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// Rule IDs.
const (
	RuleStatus4xx       = "http.status_4xx"
	RuleStatus5xx       = "http.status_5xx"
	RuleFetchFailed     = "http.fetch_failed"
	RuleRedirectChain   = "http.redirect_chain"
	RuleTitleMissing    = "title.missing"
	RuleTitleLong       = "title.too_long"
	RuleTitleShort      = "title.too_short"
	RuleTitleDuplicate  = "title.duplicate"
	RuleMetaDescription = "meta.description_missing"
	RuleH1Missing       = "h1.missing"
	RuleH1Multiple      = "h1.multiple"
	RuleImageAlt        = "img.alt_missing"
	RuleImageLazy       = "img.lazy_missing"
	RuleThinContent     = "content.thin"
	RuleCanonical       = "canonical.missing"
)

// Thresholds.
const (
	RedirectChainMinHops = 3
	TitleMaxChars        = 60
	TitleMinChars        = 10
	ThinContentWords     = 200
	AboveFoldImages      = 3
)

// DefaultChecks returns the built-in checks in reporting order.
func DefaultChecks() []Check {
	return []Check{
		CheckFunc{Name: "http-status", Fn: checkStatus},
		CheckFunc{Name: "redirect-chain", Fn: checkRedirectChain},
		CheckFunc{Name: "title", Fn: checkTitle},
		CheckFunc{Name: "meta-description", Fn: checkMetaDescription},
		CheckFunc{Name: "h1", Fn: checkH1},
		CheckFunc{Name: "image-alt", Fn: checkImageAlt},
		CheckFunc{Name: "image-lazy", Fn: checkLazyLoading},
		CheckFunc{Name: "thin-content", Fn: checkThinContent},
		CheckFunc{Name: "canonical", Fn: checkCanonical},
	}
}

// ResponseChecks are the checks that only look at the HTTP response. They
// apply to pages whose content is not audited, such as redirects that leave
// the site.
func ResponseChecks() []Check {
	return []Check{
		CheckFunc{Name: "http-status", Fn: checkStatus},
		CheckFunc{Name: "redirect-chain", Fn: checkRedirectChain},
	}
}

var (
	status5xxIssue = spec{
		rule:        RuleStatus5xx,
		severity:    domain.SeverityCritical,
		category:    domain.CategoryTechnical,
		dimension:   domain.DimensionCrawlHealth,
		title:       "Pages returning server errors (5xx)",
		description: "These URLs answered with a 5xx status, so search engines cannot index them.",
		impact:      10,
		effort:      domain.EffortMedium,
	}

	status4xxIssue = spec{
		rule:        RuleStatus4xx,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryTechnical,
		dimension:   domain.DimensionCrawlHealth,
		title:       "Broken internal links (4xx)",
		description: "Internal links point at URLs that answer with a 4xx status.",
		impact:      8,
		effort:      domain.EffortLow,
	}

	redirectChainIssue = spec{
		rule:        RuleRedirectChain,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryTechnical,
		dimension:   domain.DimensionCrawlHealth,
		title:       "Redirect chains detected (3+ hops)",
		description: "Some internal links pass through 3 or more redirects, wasting crawl budget and link equity.",
		impact:      7,
		effort:      domain.EffortMedium,
	}

	titleMissingIssue = spec{
		rule:        RuleTitleMissing,
		severity:    domain.SeverityCritical,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionOnPage,
		title:       "Missing title tags",
		description: "Pages without a <title> get an auto-generated headline in search results.",
		impact:      10,
		effort:      domain.EffortLow,
	}

	titleLongIssue = spec{
		rule:        RuleTitleLong,
		severity:    domain.SeverityInfo,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionOnPage,
		title:       fmt.Sprintf("Title tags longer than %d characters", TitleMaxChars),
		description: "Long titles are truncated in search results.",
		impact:      2,
		effort:      domain.EffortLow,
	}

	titleShortIssue = spec{
		rule:        RuleTitleShort,
		severity:    domain.SeverityInfo,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionOnPage,
		title:       fmt.Sprintf("Title tags shorter than %d characters", TitleMinChars),
		description: "Very short titles rarely describe the page well enough to earn clicks.",
		impact:      2,
		effort:      domain.EffortLow,
	}

	metaDescriptionIssue = spec{
		rule:        RuleMetaDescription,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionOnPage,
		title:       "Missing meta descriptions",
		description: "Pages without meta descriptions may display auto-generated snippets in search results.",
		impact:      8,
		effort:      domain.EffortLow,
	}

	h1MissingIssue = spec{
		rule:        RuleH1Missing,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionContent,
		title:       "Missing H1 headings",
		description: "An H1 states the topic of the page for readers and search engines.",
		impact:      5,
		effort:      domain.EffortLow,
	}

	h1MultipleIssue = spec{
		rule:        RuleH1Multiple,
		severity:    domain.SeverityInfo,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionContent,
		title:       "Multiple H1 headings",
		description: "Several H1 elements blur the main topic of the page.",
		impact:      2,
		effort:      domain.EffortLow,
	}

	imageAltIssue = spec{
		rule:        RuleImageAlt,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionContent,
		title:       "Images missing alt text",
		description: "Alt text describes images to screen readers and image search.",
		impact:      4,
		effort:      domain.EffortLow,
	}

	imageLazyIssue = spec{
		rule:        RuleImageLazy,
		severity:    domain.SeverityInfo,
		category:    domain.CategoryTechnical,
		dimension:   domain.DimensionTechnical,
		title:       "Images missing lazy loading attribute",
		description: `Below-the-fold images could benefit from loading="lazy" for improved page speed.`,
		impact:      4,
		effort:      domain.EffortLow,
	}

	thinContentIssue = spec{
		rule:        RuleThinContent,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionContent,
		title:       fmt.Sprintf("Thin content (under %d words)", ThinContentWords),
		description: "Pages with very little text struggle to rank for anything.",
		impact:      5,
		effort:      domain.EffortMedium,
	}

	canonicalIssue = spec{
		rule:        RuleCanonical,
		severity:    domain.SeverityInfo,
		category:    domain.CategoryOnPage,
		dimension:   domain.DimensionOnPage,
		title:       "Missing canonical tags",
		description: "A canonical link tells search engines which URL to index when content is reachable at several addresses.",
		impact:      3,
		effort:      domain.EffortLow,
	}

	fetchFailedIssue = spec{
		rule:        RuleFetchFailed,
		severity:    domain.SeverityWarning,
		category:    domain.CategoryTechnical,
		dimension:   domain.DimensionCrawlHealth,
		title:       "Pages could not be fetched",
		description: "These URLs could not be retrieved after retries (timeouts or connection failures).",
		impact:      8,
		effort:      domain.EffortMedium,
	}
)

type spec struct {
	rule        string
	severity    domain.Severity
	category    domain.Category
	dimension   domain.Dimension
	title       string
	description string
	impact      int
	effort      domain.Effort
}

func (s spec) issue(page string) domain.Issue {
	return domain.Issue{
		RuleID:      s.rule,
		Severity:    s.severity,
		Category:    s.category,
		Dimension:   s.dimension,
		Title:       s.title,
		Description: s.description,
		Pages:       []string{page},
		BaseImpact:  s.impact,
		Impact:      s.impact,
		Effort:      s.effort,
	}
}

func one(s spec, page string) []domain.Issue {
	return []domain.Issue{s.issue(page)}
}

func checkStatus(in Input) []domain.Issue {
	code := in.Page.StatusCode
	switch {
	case code >= http.StatusInternalServerError:
		return one(status5xxIssue, in.Page.URL)
	case code >= http.StatusBadRequest:
		return one(status4xxIssue, in.Page.URL)
	}
	return nil
}

func checkRedirectChain(in Input) []domain.Issue {
	if in.Page.RedirectHops < RedirectChainMinHops {
		return nil
	}
	return one(redirectChainIssue, in.Page.URL)
}

func checkTitle(in Input) []domain.Issue {
	if !in.IsContentPage() {
		return nil
	}
	title := in.Doc.Title
	n := utf8.RuneCountInString(title)

	switch {
	case title == "":
		return one(titleMissingIssue, in.Page.URL)
	case n > TitleMaxChars:
		return one(titleLongIssue, in.Page.URL)
	case n < TitleMinChars:
		return one(titleShortIssue, in.Page.URL)
	}
	return nil
}

func checkMetaDescription(in Input) []domain.Issue {
	if !in.IsContentPage() || in.Doc.MetaDescription != "" {
		return nil
	}
	return one(metaDescriptionIssue, in.Page.URL)
}

func checkH1(in Input) []domain.Issue {
	if !in.IsContentPage() {
		return nil
	}
	switch n := len(in.Doc.H1s); {
	case n == 0:
		return one(h1MissingIssue, in.Page.URL)
	case n > 1:
		return one(h1MultipleIssue, in.Page.URL)
	}
	return nil
}

func checkImageAlt(in Input) []domain.Issue {
	if !in.IsContentPage() {
		return nil
	}
	for _, img := range in.Doc.Images {
		if !img.HasAlt {
			return one(imageAltIssue, in.Page.URL)
		}
	}
	return nil
}

// checkLazyLoading treats every image after the first AboveFoldImages as
// below the fold.
func checkLazyLoading(in Input) []domain.Issue {
	if !in.IsContentPage() || len(in.Doc.Images) <= AboveFoldImages {
		return nil
	}
	for _, img := range in.Doc.Images[AboveFoldImages:] {
		if img.Loading != "lazy" {
			return one(imageLazyIssue, in.Page.URL)
		}
	}
	return nil
}

func checkThinContent(in Input) []domain.Issue {
	if !in.IsContentPage() || in.Doc.WordCount >= ThinContentWords {
		return nil
	}
	return one(thinContentIssue, in.Page.URL)
}

func checkCanonical(in Input) []domain.Issue {
	if !in.IsContentPage() || in.Doc.Canonical != "" {
		return nil
	}
	return one(canonicalIssue, in.Page.URL)
}

// FetchFailed converts an exhausted fetch into a crawl-health issue.
func FetchFailed(pageURL string, err error) domain.Issue {
	issue := fetchFailedIssue.issue(pageURL)
	if err != nil {
		issue.Description += " Last error: " + strings.TrimSpace(err.Error())
	}
	return issue
}
