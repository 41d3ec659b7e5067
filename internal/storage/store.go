// Package storage persists finished audit reports.
package storage

import (
	"context"
	"errors"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . ReportStore

// ErrNotFound is returned when no report exists for an ID.
var ErrNotFound = errors.New("report not found")

// ReportStore saves and loads export documents. Save overwrites any report
// already stored under the same job ID.
type ReportStore interface {
	Save(ctx context.Context, report *domain.Report) error
	Get(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context) ([]domain.ReportSummary, error)
	Delete(ctx context.Context, id string) error
}
