package audit

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/analyzer"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/issues"
)

// Job is the live state of one audit. Pages and schema findings are added
// by workers; the issue registry is the job's single mutation point for
// findings.
type Job struct {
	mu       sync.RWMutex
	info     domain.CrawlJob
	stats    domain.JobStats
	enqueued int
	pages    []*domain.Page
	audited  []*domain.Page
	initial  domain.ScoreSet
	report   *domain.Report

	registry  *issues.Registry
	titles    *analyzer.TitleAccumulator
	inventory *inventory

	cancel context.CancelFunc
	done   chan struct{}
}

func newJob(info domain.CrawlJob) *Job {
	return &Job{
		info:      info,
		stats:     domain.JobStats{Dropped: map[string]int{}},
		registry:  issues.NewRegistry(),
		titles:    analyzer.NewTitleAccumulator(),
		inventory: newInventory(),
		done:      make(chan struct{}),
	}
}

// ID returns the job ID.
func (j *Job) ID() string {
	return j.info.ID
}

// Snapshot returns a copy of the job's public state.
func (j *Job) Snapshot() domain.CrawlJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.info
}

// Done is closed once the job is terminal and its report has been saved.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) settled() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Progress derives percent complete from pages fetched over the smaller of
// the page cap and the URLs enqueued so far.
func (j *Job) Progress() domain.Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()

	p := domain.Progress{
		JobID:        j.info.ID,
		Status:       j.info.Status,
		Phase:        j.info.Phase,
		PagesFetched: j.stats.PagesFetched,
		Enqueued:     j.enqueued,
		Reason:       j.info.Reason,
	}
	switch {
	case j.info.Status == domain.JobCompleted:
		p.Percent = 100
	case j.enqueued > 0:
		total := min(j.info.Config.MaxPages, j.enqueued)
		p.Percent = min(100, j.stats.PagesFetched*100/total)
	}
	return p
}

func (j *Job) start(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.info.Status = domain.JobRunning
	j.info.Phase = domain.PhaseCrawling
	j.info.StartedAt = &now
}

func (j *Job) setPhase(p domain.Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.info.Phase = p
}

func (j *Job) setEnqueued(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enqueued = n
}

// addPage records a fetched page. audited is false for pages whose content
// was not inspected, such as redirects to another site.
func (j *Job) addPage(p *domain.Page, audited bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pages = append(j.pages, p)
	if audited {
		j.audited = append(j.audited, p)
	}
	j.stats.PagesFetched++
}

func (j *Job) countFetchError() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.FetchErrors++
}

func (j *Job) countRobotsSkip() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.RobotsSkipped++
}

func (j *Job) countSitemapURLs(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.SitemapURLs += n
}

func (j *Job) pagesFetched() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats.PagesFetched
}

// sortedPages returns the fetched pages ordered by URL.
func (j *Job) sortedPages() []*domain.Page {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := slices.Clone(j.pages)
	slices.SortFunc(out, func(a, b *domain.Page) int { return strings.Compare(a.URL, b.URL) })
	return out
}

// auditedPages returns the pages whose content was inspected, ordered by URL.
func (j *Job) auditedPages() []*domain.Page {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := slices.Clone(j.audited)
	slices.SortFunc(out, func(a, b *domain.Page) int { return strings.Compare(a.URL, b.URL) })
	return out
}

func (j *Job) finish(status domain.JobStatus, reason string, now time.Time) {
	j.mu.Lock()
	j.info.Status = status
	j.info.Reason = reason
	j.info.FinishedAt = &now
	j.mu.Unlock()
}

func (j *Job) setInitialScores(s domain.ScoreSet) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.initial = s
}

func (j *Job) statsSnapshot() (domain.JobStats, domain.ScoreSet) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := j.stats
	stats.Dropped = maps.Clone(j.stats.Dropped)
	return stats, j.initial
}

func (j *Job) setFrontierStats(enqueued int, dropped map[string]int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enqueued = enqueued
	j.stats.Enqueued = enqueued
	j.stats.Dropped = dropped
}

func (j *Job) setReport(r *domain.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = r
}

func (j *Job) currentReport() *domain.Report {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.report
}

func (j *Job) requestCancel() {
	j.mu.RLock()
	cancel := j.cancel
	j.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}
