// Package scoring turns a job's issues into its six scores.
package scoring

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

const (
	// MaxScore is the ceiling for every score.
	MaxScore = 100

	// Baseline is subtracted from MaxScore to get the impact budget of a job.
	Baseline = 0

	// dimensionWeight is the equal weight of each subscore in Overall, in percent.
	dimensionWeight = 20
)

// Dimensions lists the subscores in the order they are weighted.
var Dimensions = []domain.Dimension{
	domain.DimensionTechnical,
	domain.DimensionOnPage,
	domain.DimensionSchema,
	domain.DimensionCrawlHealth,
	domain.DimensionContent,
}

// Budget is the most impact all of a job's issues may carry together.
func Budget() int {
	return MaxScore - Baseline
}

// Normalize scales impacts so their total over every issue, resolved or
// not, fits the budget. Scaling uses the largest-remainder method with ties
// broken by issue ID. Totals within budget are returned unchanged. The
// input slice is not modified.
func Normalize(all []domain.Issue) []domain.Issue {
	out := slices.Clone(all)
	budget := Budget()

	total := 0
	for _, issue := range out {
		total += issue.Impact
	}
	if total <= budget {
		return out
	}

	// Every issue keeps at least one point while there is budget for it.
	floor := 0
	if len(out) <= budget {
		floor = 1
	}
	spare := budget - floor*len(out)
	weight := total

	type share struct {
		idx       int
		remainder int
	}
	shares := make([]share, len(out))
	assigned := 0
	for i := range out {
		scaled := out[i].Impact * spare
		out[i].Impact = floor + scaled/weight
		assigned += out[i].Impact
		shares[i] = share{idx: i, remainder: scaled % weight}
	}

	slices.SortFunc(shares, func(a, b share) int {
		if c := cmp.Compare(b.remainder, a.remainder); c != 0 {
			return c
		}
		return strings.Compare(out[a.idx].ID, out[b.idx].ID)
	})
	for i := 0; assigned < budget && i < len(shares); i++ {
		out[shares[i].idx].Impact++
		assigned++
	}
	return out
}

// Compute derives the score set from the current issue state. Each subscore
// starts at MaxScore and loses the impact of every unresolved issue mapped to
// it, floored at zero. Overall is the equal-weight average rounded half up.
// A job with no pages scores zero everywhere.
func Compute(all []domain.Issue, pages int) domain.ScoreSet {
	if pages <= 0 {
		return domain.ScoreSet{}
	}

	deductions := make(map[domain.Dimension]int, len(Dimensions))
	for _, issue := range all {
		if issue.Resolved {
			continue
		}
		deductions[dimensionOf(issue)] += issue.Impact
	}

	sub := func(d domain.Dimension) int {
		return max(MaxScore-deductions[d], 0)
	}
	scores := domain.ScoreSet{
		Technical:   sub(domain.DimensionTechnical),
		OnPage:      sub(domain.DimensionOnPage),
		Schema:      sub(domain.DimensionSchema),
		CrawlHealth: sub(domain.DimensionCrawlHealth),
		Content:     sub(domain.DimensionContent),
	}

	weighted := 0
	for _, d := range Dimensions {
		weighted += scores.Get(d) * dimensionWeight
	}
	scores.Overall = (weighted + 50) / 100
	return scores
}

// PageScores scores each page as MaxScore minus the unresolved impact of
// the issues that list it, floored at zero.
func PageScores(all []domain.Issue, pages []string) map[string]int {
	out := make(map[string]int, len(pages))
	for _, p := range pages {
		out[p] = MaxScore
	}
	for _, issue := range all {
		if issue.Resolved {
			continue
		}
		for _, p := range issue.Pages {
			if score, ok := out[p]; ok {
				out[p] = max(score-issue.Impact, 0)
			}
		}
	}
	return out
}

func dimensionOf(issue domain.Issue) domain.Dimension {
	if issue.Dimension != "" {
		return issue.Dimension
	}
	return issue.Category.DefaultDimension()
}
