package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// MemoryStore keeps reports in process memory. Reports are stored as
// encoded JSON so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
	order   []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string][]byte)}
}

// Save implements ReportStore.
func (s *MemoryStore) Save(_ context.Context, report *domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := report.Job.ID
	if _, ok := s.reports[id]; !ok {
		s.order = append(s.order, id)
	}
	s.reports[id] = data
	return nil
}

// Get implements ReportStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	data, ok := s.reports[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

// List implements ReportStore. Summaries come back newest first.
func (s *MemoryStore) List(_ context.Context) ([]domain.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ReportSummary, 0, len(s.order))
	for _, id := range slices.Backward(s.order) {
		report, err := decode(s.reports[id])
		if err != nil {
			return nil, err
		}
		out = append(out, report.Summary())
	}
	return out, nil
}

// Delete implements ReportStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func decode(data []byte) (*domain.Report, error) {
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
