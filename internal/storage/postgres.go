package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 2
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second

	reportsTable = "audit_reports"
)

const createReportsTable = `CREATE TABLE IF NOT EXISTS audit_reports (
	id            TEXT PRIMARY KEY,
	root_url      TEXT NOT NULL,
	status        TEXT NOT NULL,
	pages_fetched INTEGER NOT NULL DEFAULT 0,
	overall_score INTEGER NOT NULL DEFAULT 0,
	report        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// PostgresStore persists reports as JSONB rows.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the reports table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("create %s: %w", reportsTable, err)
	}
	return nil
}

type reportRow struct {
	ID           string `db:"id"`
	RootURL      string `db:"root_url"`
	Status       string `db:"status"`
	PagesFetched int    `db:"pages_fetched"`
	OverallScore int    `db:"overall_score"`
}

// Save implements ReportStore.
func (s *PostgresStore) Save(ctx context.Context, report *domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	summary := report.Summary()
	query, args, err := psql.Insert(reportsTable).
		Columns("id", "root_url", "status", "pages_fetched", "overall_score", "report", "created_at", "updated_at").
		Values(summary.ID, summary.RootURL, string(summary.Status), summary.Pages, summary.Score,
			data, report.Job.CreatedAt, s.now()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			pages_fetched = EXCLUDED.pages_fetched,
			overall_score = EXCLUDED.overall_score,
			report = EXCLUDED.report,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save report %s: %w", summary.ID, err)
	}
	return nil
}

// Get implements ReportStore.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	query, args, err := psql.Select("report").From(reportsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var data []byte
	if err = s.db.GetContext(ctx, &data, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return decode(data)
}

// List implements ReportStore.
func (s *PostgresStore) List(ctx context.Context) ([]domain.ReportSummary, error) {
	query, args, err := psql.
		Select("id", "root_url", "status", "pages_fetched", "overall_score").
		From(reportsTable).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []reportRow
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]domain.ReportSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ReportSummary{
			ID:      row.ID,
			RootURL: row.RootURL,
			Status:  domain.JobStatus(row.Status),
			Pages:   row.PagesFetched,
			Score:   row.OverallScore,
		})
	}
	return out, nil
}

// Delete implements ReportStore.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(reportsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
