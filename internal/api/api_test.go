package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/api"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage/mocks"
)

const waitTimeout = 20 * time.Second

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router  *gin.Engine
	manager *audit.Manager
}

func newTestAPI(t *testing.T, store storage.ReportStore) *testAPI {
	t.Helper()

	table, err := schema.LoadDefault()
	require.NoError(t, err)
	validator := schema.NewValidator(table)

	opts := audit.Options{
		Fetcher: fetcher.Config{
			Workers:      2,
			Timeout:      2 * time.Second,
			MaxRetries:   -1,
			RetryBackoff: time.Millisecond,
		},
		MinDelay: time.Millisecond,
	}
	log := logger.NewNop()
	manager := audit.NewManager(audit.NewRunner(opts, validator, log, nil), store, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	router := gin.New()
	api.SetupRoutes(router,
		api.NewAuditHandler(manager, store, log),
		api.NewSchemaHandler(validator, log),
		nil,
	)
	return &testAPI{router: router, manager: manager}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html lang="en"><head><title>API test home page</title>
<meta name="description" content="A page used in handler tests."></head>
<body><h1>API test home page</h1><p>Hello.</p></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// startAndWait starts an audit through the API and waits for it to settle.
func (a *testAPI) startAndWait(t *testing.T, root string) domain.CrawlJob {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/audits", map[string]any{
		"root_url":       root,
		"max_pages":      1,
		"max_depth":      1,
		"follow_sitemap": false,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	job := decode[domain.CrawlJob](t, w)
	require.NotEmpty(t, job.ID)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	_, err := a.manager.Wait(ctx, job.ID)
	require.NoError(t, err)
	return job
}

func TestStartAudit_Validation(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, storage.NewMemoryStore())

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{name: "missing root", body: map[string]any{"max_pages": 5}},
		{name: "malformed json", body: "{"},
		{name: "bad scheme", body: map[string]any{"root_url": "ftp://example.com"}, wantField: "root_url"},
		{name: "too many pages", body: map[string]any{"root_url": "https://example.com", "max_pages": 501}, wantField: "max_pages"},
		{name: "negative depth", body: map[string]any{"root_url": "https://example.com", "max_depth": -1}, wantField: "max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := a.do(t, http.MethodPost, "/api/v1/audits", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			if tt.wantField != "" {
				body := decode[map[string]string](t, w)
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}
}

func TestAuditLifecycle(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	a := newTestAPI(t, storage.NewMemoryStore())
	job := a.startAndWait(t, site.URL)
	base := "/api/v1/audits/" + job.ID

	w := a.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[domain.Progress](t, w)
	assert.Equal(t, domain.JobCompleted, progress.Status)
	assert.Equal(t, 100, progress.Percent)

	w = a.do(t, http.MethodGet, "/api/v1/audits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), job.ID)

	w = a.do(t, http.MethodGet, base+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[domain.Report](t, w)
	assert.Equal(t, 1, report.Stats.PagesFetched)
	require.NotEmpty(t, report.Issues)

	w = a.do(t, http.MethodGet, base+"/issues?severity=critical", nil)
	require.Equal(t, http.StatusOK, w.Code)
	critical := decode[struct {
		Issues []domain.Issue `json:"issues"`
		Count  int            `json:"count"`
	}](t, w)
	require.NotZero(t, critical.Count)
	for _, issue := range critical.Issues {
		assert.Equal(t, domain.SeverityCritical, issue.Severity)
	}

	w = a.do(t, http.MethodGet, base+"/issues?severity=fatal", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, base+"/roadmap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode[struct {
		Roadmap domain.Roadmap `json:"roadmap"`
	}](t, w).Roadmap
	require.NotEmpty(t, before.Tasks)

	target := before.Tasks[0]
	w = a.do(t, http.MethodPost, base+"/issues/"+target.IssueID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after := decode[struct {
		Scores  domain.ScoreSet `json:"scores"`
		Roadmap domain.Roadmap  `json:"roadmap"`
	}](t, w)
	assert.Len(t, after.Roadmap.Tasks, len(before.Tasks)-1)
	assert.Equal(t, 1, after.Roadmap.CompletedCount)
	assert.GreaterOrEqual(t, after.Roadmap.ProjectedScore, before.ProjectedScore)

	w = a.do(t, http.MethodPost, base+"/issues/nope/resolve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.JobCompleted, decode[domain.CrawlJob](t, w).Status)
}

func TestAuditNotFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "missing").Return(nil, storage.ErrNotFound).Times(3)

	a := newTestAPI(t, store)

	for _, path := range []string{
		"/api/v1/audits/missing",
		"/api/v1/audits/missing/report",
		"/api/v1/audits/missing/issues",
		"/api/v1/audits/missing/roadmap",
	} {
		w := a.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := a.do(t, http.MethodPost, "/api/v1/audits/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportFallsBackToStore(t *testing.T) {
	t.Parallel()

	stored := &domain.Report{
		Job:    domain.CrawlJob{ID: "old", RootURL: "https://example.com/", Status: domain.JobCompleted},
		Scores: domain.ScoreSet{Overall: 80},
		Issues: []domain.Issue{},
	}

	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "old").Return(stored, nil)

	a := newTestAPI(t, store)

	w := a.do(t, http.MethodGet, "/api/v1/audits/old/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 80, decode[domain.Report](t, w).Scores.Overall)
}

func TestStoredReports(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockReportStore(ctrl)
	gomock.InOrder(
		store.EXPECT().List(gomock.Any()).Return([]domain.ReportSummary{
			{ID: "b", RootURL: "https://b.example/", Status: domain.JobCompleted, Pages: 3, Score: 70},
			{ID: "a", RootURL: "https://a.example/", Status: domain.JobFailed},
		}, nil),
		store.EXPECT().List(gomock.Any()).Return(nil, errors.New("connection refused")),
	)
	store.EXPECT().Delete(gomock.Any(), "a").Return(nil)
	store.EXPECT().Delete(gomock.Any(), "zzz").Return(storage.ErrNotFound)

	a := newTestAPI(t, store)

	w := a.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Reports []domain.ReportSummary `json:"reports"`
		Count   int                    `json:"count"`
	}](t, w)
	assert.Equal(t, 2, listed.Count)
	assert.Equal(t, "b", listed.Reports[0].ID)

	w = a.do(t, http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = a.do(t, http.MethodDelete, "/api/v1/reports/a", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(t, http.MethodDelete, "/api/v1/reports/zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaTypes(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, storage.NewMemoryStore())

	w := a.do(t, http.MethodGet, "/api/v1/schema/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Organization"`)

	w = a.do(t, http.MethodGet, "/api/v1/schema/types/Organization", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Organization", decode[schema.Rule](t, w).Type)

	w = a.do(t, http.MethodGet, "/api/v1/schema/types/Spaceship", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaValidate(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, storage.NewMemoryStore())

	w := a.do(t, http.MethodPost, "/api/v1/schema/validate",
		`{"@context":"https://schema.org","@type":"Organization"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[schema.SnippetResult](t, w)
	assert.False(t, res.Valid)
	require.Len(t, res.Instances, 1)
	assert.NotEmpty(t, res.Issues)

	w = a.do(t, http.MethodPost, "/api/v1/schema/validate", `{"@type": "Organization",`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[schema.SnippetResult](t, w).Valid)

	w = a.do(t, http.MethodPost, "/api/v1/schema/validate", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/schema/validate", strings.Repeat(" ", (1<<20)+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSchemaGenerate(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, storage.NewMemoryStore())

	w := a.do(t, http.MethodPost, "/api/v1/schema/generate", map[string]any{
		"type":   "Organization",
		"fields": map[string]any{"name": "Acme", "url": "  "},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[schema.GenerateResult](t, w)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(res.Document, &doc))
	assert.Equal(t, "Organization", doc["@type"])
	assert.Equal(t, "Acme", doc["name"])
	assert.NotContains(t, doc, "url")
	assert.Contains(t, res.Missing, "url")

	w = a.do(t, http.MethodPost, "/api/v1/schema/generate", map[string]any{"type": "Spaceship"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/schema/generate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
