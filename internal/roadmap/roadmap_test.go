package roadmap_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/roadmap"
)

func fixture() []domain.Issue {
	return []domain.Issue{
		{ID: "b2", Title: "Fix duplicate title tags", Impact: 12, Effort: domain.EffortMedium, Dimension: domain.DimensionOnPage},
		{ID: "a1", Title: "Add Organization schema to homepage", Impact: 15, Effort: domain.EffortLow, Dimension: domain.DimensionSchema},
		{ID: "c3", Title: "Fix JSON-LD syntax", Impact: 10, Effort: domain.EffortLow, Dimension: domain.DimensionSchema},
		{ID: "d4", Title: "Fix redirect chains", Impact: 10, Effort: domain.EffortMedium, Dimension: domain.DimensionCrawlHealth},
		{ID: "c0", Title: "Add breadcrumbs", Impact: 10, Effort: domain.EffortLow, Dimension: domain.DimensionSchema},
		{ID: "e5", Title: "Already done", Impact: 8, Effort: domain.EffortLow, Resolved: true},
	}
}

func ids(tasks []domain.RoadmapTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.IssueID)
	}
	return out
}

func TestPlan_Order(t *testing.T) {
	t.Parallel()

	tasks := roadmap.Plan(fixture())
	assert.Equal(t, []string{"a1", "b2", "c0", "c3", "d4"}, ids(tasks))
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Rank)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	want := ids(roadmap.Plan(fixture()))
	for range 20 {
		shuffled := fixture()
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, ids(roadmap.Plan(shuffled)))
	}
}

func TestPlan_Kinds(t *testing.T) {
	t.Parallel()

	tasks := roadmap.Plan(fixture())
	require.Len(t, tasks, 5)
	assert.Equal(t, domain.TaskQuickWin, tasks[0].Kind)
	assert.Equal(t, "15 min", tasks[0].EstimatedTime)
	assert.Equal(t, domain.TaskContent, tasks[1].Kind)
	assert.Equal(t, "1 hour", tasks[1].EstimatedTime)
	assert.Equal(t, domain.TaskDeveloper, tasks[4].Kind)
}

func TestProjectedScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 80, roadmap.ProjectedScore(68, 12))
	assert.Equal(t, 100, roadmap.ProjectedScore(95, 15))
	assert.Equal(t, 68, roadmap.ProjectedScore(68, 0))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	rm := roadmap.Build(fixture(), 60)
	assert.Len(t, rm.Tasks, 5)
	assert.Equal(t, 1, rm.CompletedCount)
	assert.Equal(t, 57, rm.PotentialGain)
	assert.Equal(t, 68, rm.ProjectedScore)
}
