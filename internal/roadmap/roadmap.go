// Package roadmap orders unresolved issues into a remediation plan.
package roadmap

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/scoring"
)

var estimates = map[domain.Effort]string{
	domain.EffortLow:    "15 min",
	domain.EffortMedium: "1 hour",
	domain.EffortHigh:   "4 hours",
}

// Plan returns one task per unresolved issue ordered by impact descending,
// then effort ascending, then issue ID.
func Plan(all []domain.Issue) []domain.RoadmapTask {
	open := make([]domain.Issue, 0, len(all))
	for _, issue := range all {
		if !issue.Resolved {
			open = append(open, issue)
		}
	}

	slices.SortFunc(open, func(a, b domain.Issue) int {
		if c := cmp.Compare(b.Impact, a.Impact); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Effort.Rank(), b.Effort.Rank()); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	tasks := make([]domain.RoadmapTask, 0, len(open))
	for i, issue := range open {
		tasks = append(tasks, domain.RoadmapTask{
			Rank:          i + 1,
			IssueID:       issue.ID,
			Title:         issue.Title,
			Impact:        issue.Impact,
			Effort:        issue.Effort,
			Category:      issue.Category,
			Kind:          KindOf(issue),
			EstimatedTime: EstimatedTime(issue.Effort),
			Pages:         slices.Clone(issue.Pages),
		})
	}
	return tasks
}

// KindOf buckets an issue: low effort fixes are quick wins, content and
// on-page work goes to writers, everything else to developers.
func KindOf(issue domain.Issue) domain.TaskKind {
	switch {
	case issue.Effort == domain.EffortLow:
		return domain.TaskQuickWin
	case issue.Dimension == domain.DimensionContent, issue.Dimension == domain.DimensionOnPage:
		return domain.TaskContent
	default:
		return domain.TaskDeveloper
	}
}

// EstimatedTime is a rough time-to-fix for an effort level.
func EstimatedTime(e domain.Effort) string {
	if est, ok := estimates[e]; ok {
		return est
	}
	return "unknown"
}

// ProjectedScore adds the impact of completed tasks to a baseline overall
// score, capped at the maximum.
func ProjectedScore(overall, completedImpact int) int {
	return min(scoring.MaxScore, overall+completedImpact)
}

// Build assembles the roadmap for a job. ProjectedScore uses the overall
// score at crawl completion (initialOverall) as its baseline, not the current
// overall score, and adds the impact of resolved issues so resolved work is
// counted once.
func Build(all []domain.Issue, initialOverall int) domain.Roadmap {
	tasks := Plan(all)

	completed, gained, potential := 0, 0, 0
	for _, issue := range all {
		if issue.Resolved {
			completed++
			gained += issue.Impact
			continue
		}
		potential += issue.Impact
	}

	return domain.Roadmap{
		Tasks:          tasks,
		PotentialGain:  min(potential, scoring.MaxScore),
		CompletedCount: completed,
		ProjectedScore: ProjectedScore(initialOverall, gained),
	}
}
