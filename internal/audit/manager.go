// Package audit runs website audits: it owns job lifecycle, drives the crawl
// pipeline and assembles the export report.
package audit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/issues"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

// Manager tracks audit jobs and runs each one in its own goroutine.
type Manager struct {
	runner *Runner
	store  storage.ReportStore
	log    logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup

	// resolving serializes resolves per job, live or stored.
	resolving keyedMutex
}

// NewManager creates a Manager. Finished reports are written to store.
func NewManager(runner *Runner, store storage.ReportStore, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Manager{
		runner: runner,
		store:  store,
		log:    log,
		now:    time.Now,
		jobs:   make(map[string]*Job),
	}
}

// Start validates req and launches the audit in the background. Invalid
// requests return a *domain.ConfigError and create no job. The job outlives
// ctx; use Cancel to stop it.
func (m *Manager) Start(ctx context.Context, req StartRequest) (domain.CrawlJob, error) {
	root, cfg, err := req.Validate()
	if err != nil {
		return domain.CrawlJob{}, err
	}

	job := newJob(domain.CrawlJob{
		ID:        uuid.NewString(),
		RootURL:   root,
		Config:    cfg,
		Status:    domain.JobQueued,
		CreatedAt: m.now().UTC(),
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job.cancel = cancel

	m.mu.Lock()
	m.jobs[job.ID()] = job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer close(job.done)

		report := m.runner.Run(runCtx, job)
		if saveErr := m.store.Save(context.WithoutCancel(ctx), report); saveErr != nil {
			m.log.Error("Failed to save report", logger.JobID(job.ID()), logger.Error(saveErr))
		}
	}()

	return job.Snapshot(), nil
}

func (m *Manager) job(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Get returns the current state of a job.
func (m *Manager) Get(id string) (domain.CrawlJob, error) {
	job, err := m.job(id)
	if err != nil {
		return domain.CrawlJob{}, err
	}
	return job.Snapshot(), nil
}

// Progress returns status, phase and percent complete for a job.
func (m *Manager) Progress(id string) (domain.Progress, error) {
	job, err := m.job(id)
	if err != nil {
		return domain.Progress{}, err
	}
	return job.Progress(), nil
}

// List returns every tracked job, newest first.
func (m *Manager) List() []domain.CrawlJob {
	m.mu.RLock()
	out := make([]domain.CrawlJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job.Snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.CrawlJob) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Cancel asks a running job to stop. Workers drain before the job turns
// cancelled. Cancelling a finished job is a no-op.
func (m *Manager) Cancel(id string) (domain.CrawlJob, error) {
	job, err := m.job(id)
	if err != nil {
		return domain.CrawlJob{}, err
	}
	if !job.Snapshot().Status.Terminal() {
		job.requestCancel()
		m.log.Info("Audit cancel requested", logger.JobID(id))
	}
	return job.Snapshot(), nil
}

// Wait blocks until the job finishes or ctx ends, then returns its report.
func (m *Manager) Wait(ctx context.Context, id string) (*domain.Report, error) {
	job, err := m.job(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-job.Done():
		return job.currentReport(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report returns the export document for a finished job. Jobs no longer
// tracked in memory are loaded from the report store.
func (m *Manager) Report(ctx context.Context, id string) (*domain.Report, error) {
	job, err := m.job(id)
	if errors.Is(err, ErrJobNotFound) {
		return m.storedReport(ctx, id)
	}
	if !job.settled() {
		return nil, ErrReportNotReady
	}
	return job.currentReport(), nil
}

func (m *Manager) storedReport(ctx context.Context, id string) (*domain.Report, error) {
	report, err := m.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return report, nil
}

// Resolve marks an issue of a finished job resolved and returns the
// refreshed report. Resolving twice is a no-op. The report is saved
// whenever the state changes.
func (m *Manager) Resolve(ctx context.Context, jobID, issueID string) (*domain.Report, error) {
	unlock := m.resolving.lock(jobID)
	defer unlock()

	job, err := m.job(jobID)
	if errors.Is(err, ErrJobNotFound) {
		return m.resolveStored(ctx, jobID, issueID)
	}
	if !job.settled() {
		return nil, ErrReportNotReady
	}

	changed, err := job.registry.Resolve(issueID)
	if errors.Is(err, issues.ErrNotFound) {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return job.currentReport(), nil
	}

	report := buildReport(job)
	job.setReport(report)
	if err = m.store.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report %s: %w", jobID, err)
	}
	m.log.Info("Issue resolved",
		logger.JobID(jobID),
		logger.String("issue_id", issueID),
		logger.Int("score", report.Scores.Overall),
	)
	return report, nil
}

func (m *Manager) resolveStored(ctx context.Context, jobID, issueID string) (*domain.Report, error) {
	report, err := m.storedReport(ctx, jobID)
	if err != nil {
		return nil, err
	}
	changed, err := resolveInReport(report, issueID)
	if err != nil {
		return nil, err
	}
	if changed {
		if err = m.store.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("save report %s: %w", jobID, err)
		}
	}
	return report, nil
}

// Evict drops finished jobs older than maxAge from memory. Their reports
// remain available from the store. It returns the number of jobs evicted.
func (m *Manager) Evict(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, job := range m.jobs {
		info := job.Snapshot()
		if !job.settled() || info.FinishedAt == nil || info.FinishedAt.After(cutoff) {
			continue
		}
		delete(m.jobs, id)
		evicted++
	}
	return evicted
}

// Shutdown cancels every running job and waits for them to drain or for
// ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	for _, job := range m.jobs {
		job.requestCancel()
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
