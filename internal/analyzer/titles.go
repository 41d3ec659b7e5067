package analyzer

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

var duplicateTitleIssue = spec{
	rule:      RuleTitleDuplicate,
	severity:  domain.SeverityCritical,
	category:  domain.CategoryOnPage,
	dimension: domain.DimensionOnPage,
	title:     "Duplicate title tags",
	impact:    12,
	effort:    domain.EffortMedium,
}

// TitleAccumulator groups pages by normalized title across a job. Duplicate
// detection needs every page, so it is flushed once after the crawl.
type TitleAccumulator struct {
	mu     sync.Mutex
	titles map[string][]string
}

// NewTitleAccumulator creates an empty accumulator.
func NewTitleAccumulator() *TitleAccumulator {
	return &TitleAccumulator{titles: make(map[string][]string)}
}

// Add records the title of a page. Empty titles are ignored.
func (a *TitleAccumulator) Add(pageURL, title string) {
	key := strings.ToLower(strings.Join(strings.Fields(title), " "))
	if key == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !slices.Contains(a.titles[key], pageURL) {
		a.titles[key] = append(a.titles[key], pageURL)
	}
}

// Issues returns a single issue covering every page that shares its title
// with another page, or nil when all titles are unique.
func (a *TitleAccumulator) Issues() []domain.Issue {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		pages  []string
		groups int
	)
	for _, urls := range a.titles {
		if len(urls) < 2 {
			continue
		}
		groups++
		pages = append(pages, urls...)
	}
	if len(pages) == 0 {
		return nil
	}
	slices.Sort(pages)

	issue := duplicateTitleIssue.issue(pages[0])
	issue.Pages = pages
	issue.Description = fmt.Sprintf(
		"%d pages share %d title(s), which makes it hard for search engines to tell them apart.",
		len(pages), groups)
	return []domain.Issue{issue}
}
