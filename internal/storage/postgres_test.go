package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

var summaryColumns = []string{"id", "root_url", "status", "pages_fetched", "overall_score"}

func newPostgresStore(t *testing.T) (*storage.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return storage.NewPostgresStore(sqlx.NewDb(mockDB, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_reports").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_reports .+ ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("job-1", "https://example.com/", "completed", 3, 72,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Save(context.Background(), sampleReport("job-1", 72)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newPostgresStore(t)

	data, err := json.Marshal(sampleReport("job-1", 72))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	mock.ExpectQuery("SELECT report FROM audit_reports WHERE id").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(data))

	report, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if report.Scores.Overall != 72 {
		t.Errorf("expected overall=72, got %d", report.Scores.Overall)
	}
	expectationsMet(t, mock)
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery("SELECT report FROM audit_reports WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"report"}))

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery("SELECT id, root_url, status, pages_fetched, overall_score FROM audit_reports ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(summaryColumns).
			AddRow("job-2", "https://b.example/", "failed", 0, 0).
			AddRow("job-1", "https://a.example/", "completed", 12, 81))

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[1].Score != 81 || list[1].Pages != 12 {
		t.Errorf("unexpected summary: %+v", list[1])
	}
	if list[0].Status != "failed" {
		t.Errorf("expected status=failed, got %s", list[0].Status)
	}
	expectationsMet(t, mock)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("DELETE FROM audit_reports WHERE id").
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM audit_reports WHERE id").
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "job-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(context.Background(), "job-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
