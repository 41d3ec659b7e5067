package audit_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/audit"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/storage"
)

const waitTimeout = 20 * time.Second

func testOptions() audit.Options {
	return audit.Options{
		Fetcher: fetcher.Config{
			Workers:      4,
			Timeout:      2 * time.Second,
			MaxRetries:   -1,
			RetryBackoff: time.Millisecond,
		},
		MinDelay: time.Millisecond,
	}
}

func newManager(t *testing.T, opts audit.Options) (*audit.Manager, *storage.MemoryStore) {
	t.Helper()

	table, err := schema.LoadDefault()
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	runner := audit.NewRunner(opts, schema.NewValidator(table), nil, nil)
	m := audit.NewManager(runner, store, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m, store
}

// runAudit starts an audit and waits for its report.
func runAudit(t *testing.T, m *audit.Manager, req audit.StartRequest) *domain.Report {
	t.Helper()

	job, err := m.Start(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	report, err := m.Wait(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

func ptr(b bool) *bool { return &b }

// htmlPage renders a reasonably healthy page around body.
func htmlPage(title, head, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en"><head><title>%s</title>
<meta name="description" content="A page used in crawler tests.">
%s
</head><body><h1>%s</h1>%s</body></html>`, title, head, title, body)
}

// site serves fixed documents by path and counts hits per request URI.
// "{{base}}" in a document is replaced with the server's base URL.
type site struct {
	*httptest.Server

	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	delay time.Duration
}

func (s *site) setDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func newSite(t *testing.T, pages map[string]string) *site {
	t.Helper()

	s := &site{hits: make(map[string]int), pages: pages}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.RequestURI()]++
	body, ok := s.pages[r.URL.Path]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 && r.URL.Path != "/robots.txt" {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, ".txt"):
		w.Header().Set("Content-Type", "text/plain")
	case strings.HasSuffix(r.URL.Path, ".xml"):
		w.Header().Set("Content-Type", "application/xml")
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = w.Write([]byte(strings.ReplaceAll(body, "{{base}}", "http://"+r.Host)))
}

func (s *site) hitCount(uri string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[uri]
}

func (s *site) allHits() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.hits))
	for k, v := range s.hits {
		out[k] = v
	}
	return out
}

func findIssue(report *domain.Report, match func(domain.Issue) bool) (domain.Issue, bool) {
	for _, issue := range report.Issues {
		if match(issue) {
			return issue, true
		}
	}
	return domain.Issue{}, false
}

// requestLog wraps a handler and records every request URI it serves.
type requestLog struct {
	mu   sync.Mutex
	uris []string
	next http.Handler
}

func (l *requestLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	l.uris = append(l.uris, r.URL.RequestURI())
	l.mu.Unlock()
	l.next.ServeHTTP(w, r)
}

// count returns how often uri was requested.
func (l *requestLog) count(uri string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, u := range l.uris {
		if u == uri {
			n++
		}
	}
	return n
}

func serveHTML(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
