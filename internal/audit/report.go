package audit

import (
	"slices"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/issues"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/roadmap"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/scoring"
)

// buildReport assembles the export document from the job's current state.
func buildReport(j *Job) *domain.Report {
	stats, initial := j.statsSnapshot()
	stats.SchemaInstances = j.inventory.total()

	pages := j.sortedPages()
	summaries := make([]domain.PageSummary, 0, len(pages))
	for _, p := range pages {
		page := *p
		page.Body = nil
		summaries = append(summaries, domain.PageSummary{Page: page})
	}

	report := &domain.Report{
		Job:             j.Snapshot(),
		InitialScores:   initial,
		Issues:          scoring.Normalize(j.registry.Issues()),
		Pages:           summaries,
		SchemaInventory: j.inventory.entries(),
		Stats:           stats,
	}
	refresh(report)
	return report
}

// refresh recomputes every value derived from issue state: scores, per-page
// rows and the roadmap.
func refresh(r *domain.Report) {
	urls := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		urls = append(urls, p.URL)
	}

	r.Scores = scoring.Compute(r.Issues, len(r.Pages))
	pageScores := scoring.PageScores(r.Issues, urls)

	open := make([]domain.Issue, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if !issue.Resolved {
			open = append(open, issue)
		}
	}
	for i := range r.Pages {
		r.Pages[i].Score = pageScores[r.Pages[i].URL]
		r.Pages[i].Issues = len(issues.ForPage(open, r.Pages[i].URL))
	}

	r.Roadmap = roadmap.Build(r.Issues, r.InitialScores.Overall)
}

// resolveInReport marks an issue resolved inside a stored report and
// refreshes derived values. It reports whether anything changed.
func resolveInReport(r *domain.Report, issueID string) (bool, error) {
	idx := slices.IndexFunc(r.Issues, func(i domain.Issue) bool { return i.ID == issueID })
	if idx < 0 {
		return false, ErrIssueNotFound
	}
	if r.Issues[idx].Resolved {
		return false, nil
	}
	r.Issues[idx].Resolved = true
	refresh(r)
	return true, nil
}

// FilterIssues returns the issues of a report with the given severity, or
// all of them when severity is empty.
func FilterIssues(all []domain.Issue, severity domain.Severity) []domain.Issue {
	if severity == "" {
		return all
	}
	out := make([]domain.Issue, 0, len(all))
	for _, issue := range all {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}
