package audit

import (
	"slices"
	"strings"
	"sync"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

const unknownType = "Unknown"

var statusRank = map[domain.SchemaStatus]int{
	domain.SchemaValid:    0,
	domain.SchemaWarnings: 1,
	domain.SchemaErrors:   2,
}

// inventory counts schema instances per declared type across a job.
type inventory struct {
	mu    sync.Mutex
	types map[string]*domain.SchemaInventoryEntry
}

func newInventory() *inventory {
	return &inventory{types: make(map[string]*domain.SchemaInventoryEntry)}
}

// add records one instance and the issues its validation raised.
func (inv *inventory) add(in domain.SchemaInstance, found []domain.Issue) {
	typ := in.Type
	if typ == "" {
		typ = unknownType
	}
	status := instanceStatus(in, found)

	inv.mu.Lock()
	defer inv.mu.Unlock()

	entry, ok := inv.types[typ]
	if !ok {
		entry = &domain.SchemaInventoryEntry{Type: typ, Status: domain.SchemaValid}
		inv.types[typ] = entry
	}
	entry.Count++
	if !slices.Contains(entry.Pages, in.Page) {
		entry.Pages = append(entry.Pages, in.Page)
	}
	if statusRank[status] > statusRank[entry.Status] {
		entry.Status = status
	}
}

func (inv *inventory) entries() []domain.SchemaInventoryEntry {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]domain.SchemaInventoryEntry, 0, len(inv.types))
	for _, e := range inv.types {
		entry := *e
		entry.Pages = slices.Clone(e.Pages)
		slices.Sort(entry.Pages)
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b domain.SchemaInventoryEntry) int {
		return strings.Compare(a.Type, b.Type)
	})
	return out
}

func (inv *inventory) total() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	n := 0
	for _, e := range inv.types {
		n += e.Count
	}
	return n
}

func instanceStatus(in domain.SchemaInstance, found []domain.Issue) domain.SchemaStatus {
	if !in.SyntaxValid {
		return domain.SchemaErrors
	}
	status := domain.SchemaValid
	for _, issue := range found {
		switch issue.Severity {
		case domain.SeverityCritical:
			return domain.SchemaErrors
		case domain.SeverityWarning:
			status = domain.SchemaWarnings
		}
	}
	return status
}
