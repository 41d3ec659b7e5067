// Package analyzer runs on-page SEO checks against fetched documents.
package analyzer

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/extractor"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// Input is everything a check may inspect for one page.
type Input struct {
	Page   *domain.Page
	Doc    extractor.Document
	IsRoot bool
}

// IsContentPage reports whether the page is a 2xx response with a body worth
// inspecting for on-page signals.
func (in Input) IsContentPage() bool {
	return in.Page != nil && in.Page.StatusCode >= 200 && in.Page.StatusCode < 300
}

// Check inspects one page and returns the issues it finds.
type Check interface {
	ID() string
	Run(in Input) []domain.Issue
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	Name string
	Fn   func(in Input) []domain.Issue
}

// ID returns the check's name.
func (c CheckFunc) ID() string { return c.Name }

// Run calls Fn.
func (c CheckFunc) Run(in Input) []domain.Issue { return c.Fn(in) }

// Analyzer runs a fixed set of checks.
type Analyzer struct {
	checks []Check
	log    logger.Logger
}

// New creates an Analyzer. With no checks given, DefaultChecks is used.
func New(log logger.Logger, checks ...Check) *Analyzer {
	if log == nil {
		log = logger.NewNop()
	}
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	return &Analyzer{checks: checks, log: log}
}

// Analyze runs every check. A check that panics is logged and skipped; the
// remaining checks still run.
func (a *Analyzer) Analyze(in Input) []domain.Issue {
	var issues []domain.Issue
	for _, c := range a.checks {
		issues = append(issues, a.run(c, in)...)
	}
	return issues
}

func (a *Analyzer) run(c Check, in Input) (issues []domain.Issue) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Analyzer check panicked",
				logger.String("check", c.ID()),
				logger.URL(in.Doc.URL),
				logger.String("panic", fmt.Sprint(r)),
			)
			issues = nil
		}
	}()
	return c.Run(in)
}
