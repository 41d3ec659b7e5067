// Package issues deduplicates findings across pages into a job-wide registry.
package issues

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// ErrNotFound is returned when an issue ID is not in the registry.
var ErrNotFound = errors.New("issue not found")

const idLength = 12

// Key returns the deduplication key for an issue.
func Key(category domain.Category, ruleID, title string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	return string(category) + "|" + ruleID + "|" + normalized
}

// ID derives a stable issue ID from its key, so the same finding keeps its
// ID across runs against the same site.
func ID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:idLength]
}

// EffectiveImpact widens an issue's impact with the number of affected
// pages, capped at half the base impact.
func EffectiveImpact(base, pages int) int {
	extra := min(max(pages-1, 0), base/2)
	return base + extra
}

// Registry collects issues for one job. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	issues map[string]*domain.Issue
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{issues: make(map[string]*domain.Issue)}
}

// Add merges issues into the registry. An issue matching an existing key
// contributes only its pages.
func (r *Registry) Add(found ...domain.Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, in := range found {
		id := ID(Key(in.Category, in.RuleID, in.Title))

		existing, ok := r.issues[id]
		if !ok {
			issue := in
			issue.ID = id
			issue.Pages = nil
			if issue.Dimension == "" {
				issue.Dimension = issue.Category.DefaultDimension()
			}
			if issue.BaseImpact == 0 {
				issue.BaseImpact = in.Impact
			}
			existing = &issue
			r.issues[id] = existing
		}
		existing.Pages = mergePages(existing.Pages, in.Pages)
		existing.Impact = EffectiveImpact(existing.BaseImpact, len(existing.Pages))
	}
}

func mergePages(have, add []string) []string {
	for _, p := range add {
		if p != "" && !slices.Contains(have, p) {
			have = append(have, p)
		}
	}
	slices.Sort(have)
	return have
}

// Resolve marks an issue resolved. It reports whether the state changed;
// resolving an already resolved issue is a no-op.
func (r *Registry) Resolve(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok {
		return false, ErrNotFound
	}
	if issue.Resolved {
		return false, nil
	}
	issue.Resolved = true
	return true, nil
}

// Get returns a copy of one issue.
func (r *Registry) Get(id string) (domain.Issue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issue, ok := r.issues[id]
	if !ok {
		return domain.Issue{}, false
	}
	return clone(*issue), true
}

// Issues returns copies of every issue ordered by ID.
func (r *Registry) Issues() []domain.Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Issue, 0, len(r.issues))
	for _, issue := range r.issues {
		out = append(out, clone(*issue))
	}
	slices.SortFunc(out, func(a, b domain.Issue) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of distinct issues.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.issues)
}

func clone(issue domain.Issue) domain.Issue {
	issue.Pages = slices.Clone(issue.Pages)
	return issue
}

// ForPage returns the issues that list pageURL among their pages.
func ForPage(all []domain.Issue, pageURL string) []domain.Issue {
	var out []domain.Issue
	for _, issue := range all {
		if slices.Contains(issue.Pages, pageURL) {
			out = append(out, issue)
		}
	}
	return out
}
