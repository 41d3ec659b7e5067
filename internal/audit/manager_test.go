package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

func TestManager_StartRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t, testOptions())

	_, err := m.Start(context.Background(), audit.StartRequest{RootURL: "mailto:someone@example.com"})
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, m.List())
}

func TestManager_UnknownJob(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t, testOptions())

	_, err := m.Get("missing")
	require.ErrorIs(t, err, audit.ErrJobNotFound)
	_, err = m.Progress("missing")
	require.ErrorIs(t, err, audit.ErrJobNotFound)
	_, err = m.Cancel("missing")
	require.ErrorIs(t, err, audit.ErrJobNotFound)
	_, err = m.Report(context.Background(), "missing")
	require.ErrorIs(t, err, audit.ErrJobNotFound)
	_, err = m.Resolve(context.Background(), "missing", "x")
	require.ErrorIs(t, err, audit.ErrJobNotFound)
}

func TestManager_ProgressAndList(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": htmlPage("Progress test home", "", "")})
	m, store := newManager(t, testOptions())

	report := runAudit(t, m, audit.StartRequest{RootURL: s.URL, MaxPages: 5, MaxDepth: 1, FollowSitemap: ptr(false)})

	p, err := m.Progress(report.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, p.Status)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, 1, p.PagesFetched)
	assert.Equal(t, domain.PhaseScoring, p.Phase)

	jobs := m.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, report.Job.ID, jobs[0].ID)

	require.Eventually(t, func() bool {
		_, getErr := store.Get(context.Background(), report.Job.ID)
		return getErr == nil
	}, waitTimeout, 10*time.Millisecond)
}

func TestManager_Resolve(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": htmlPage("Resolve test home page", "", "")})
	m, store := newManager(t, testOptions())

	report := runAudit(t, m, audit.StartRequest{RootURL: s.URL, MaxPages: 1, MaxDepth: 1, FollowSitemap: ptr(false)})
	org, ok := findIssue(report, func(i domain.Issue) bool { return i.Title == "Missing Organization schema on homepage" })
	require.True(t, ok)

	ctx := context.Background()
	updated, err := m.Resolve(ctx, report.Job.ID, org.ID)
	require.NoError(t, err)

	assert.Greater(t, updated.Scores.Schema, report.Scores.Schema)
	assert.GreaterOrEqual(t, updated.Scores.Overall, report.Scores.Overall)
	assert.Equal(t, report.InitialScores, updated.InitialScores)
	assert.Equal(t, 1, updated.Roadmap.CompletedCount)
	assert.Equal(t, min(100, report.InitialScores.Overall+org.Impact), updated.Roadmap.ProjectedScore)
	for _, task := range updated.Roadmap.Tasks {
		assert.NotEqual(t, org.ID, task.IssueID)
	}

	again, err := m.Resolve(ctx, report.Job.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Scores, again.Scores)

	stored, err := store.Get(ctx, report.Job.ID)
	require.NoError(t, err)
	resolved, _ := findIssue(stored, func(i domain.Issue) bool { return i.ID == org.ID })
	assert.True(t, resolved.Resolved)

	_, err = m.Resolve(ctx, report.Job.ID, "nope")
	assert.ErrorIs(t, err, audit.ErrIssueNotFound)
}

func TestManager_EvictFallsBackToStore(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": htmlPage("Eviction test home page", "", "")})
	m, store := newManager(t, testOptions())

	report := runAudit(t, m, audit.StartRequest{RootURL: s.URL, MaxPages: 1, MaxDepth: 1, FollowSitemap: ptr(false)})
	require.Eventually(t, func() bool {
		_, getErr := store.Get(context.Background(), report.Job.ID)
		return getErr == nil
	}, waitTimeout, 10*time.Millisecond)

	assert.Equal(t, 0, m.Evict(time.Hour))
	assert.Equal(t, 1, m.Evict(-time.Second))
	assert.Empty(t, m.List())

	ctx := context.Background()
	loaded, err := m.Report(ctx, report.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Scores, loaded.Scores)

	target := loaded.Issues[0]
	updated, err := m.Resolve(ctx, report.Job.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Roadmap.CompletedCount)

	_, err = m.Resolve(ctx, report.Job.ID, "nope")
	assert.ErrorIs(t, err, audit.ErrIssueNotFound)
}

// resolveAll resolves every issue of jobID from its own goroutine.
func resolveAll(t *testing.T, m *audit.Manager, jobID string, all []domain.Issue) {
	t.Helper()

	var wg sync.WaitGroup
	errs := make(chan error, len(all))
	for _, issue := range all {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.Resolve(context.Background(), jobID, id); err != nil {
				errs <- err
			}
		}(issue.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestManager_ConcurrentResolvesKeepEveryUpdate(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": `<html><body><img src="a.png"><p>bare</p></body></html>`})
	m, store := newManager(t, testOptions())

	report := runAudit(t, m, audit.StartRequest{RootURL: s.URL, MaxPages: 1, MaxDepth: 1, FollowSitemap: ptr(false)})
	require.GreaterOrEqual(t, len(report.Issues), 3)

	resolveAll(t, m, report.Job.ID, report.Issues)

	ctx := context.Background()
	current, err := m.Report(ctx, report.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, len(report.Issues), current.Roadmap.CompletedCount)
	assert.Empty(t, current.Roadmap.Tasks)

	stored, err := store.Get(ctx, report.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, len(report.Issues), stored.Roadmap.CompletedCount)
}

func TestManager_ConcurrentResolvesOnStoredReport(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]string{"/": `<html><body><img src="a.png"><p>bare</p></body></html>`})
	m, store := newManager(t, testOptions())

	report := runAudit(t, m, audit.StartRequest{RootURL: s.URL, MaxPages: 1, MaxDepth: 1, FollowSitemap: ptr(false)})
	require.GreaterOrEqual(t, len(report.Issues), 3)
	require.Eventually(t, func() bool {
		_, getErr := store.Get(context.Background(), report.Job.ID)
		return getErr == nil
	}, waitTimeout, 10*time.Millisecond)
	require.Equal(t, 1, m.Evict(-time.Second))

	resolveAll(t, m, report.Job.ID, report.Issues)

	stored, err := store.Get(context.Background(), report.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, len(report.Issues), stored.Roadmap.CompletedCount)
	for _, issue := range stored.Issues {
		assert.True(t, issue.Resolved, "issue %s lost its resolution", issue.ID)
	}
}
