// Package schema validates structured-data instances against a data-driven
// schema.org rule table. New types are added by appending rows to the table,
// never by adding code.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// ErrUnknownType is returned for types missing from the rule table.
var ErrUnknownType = errors.New("unknown schema type")

// Importance weights missing recommended fields.
type Importance string

// Importance levels.
const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Format is a value-format constraint on a field.
type Format string

// Field formats.
const (
	FormatURL      Format = "url"
	FormatDate     Format = "date"
	FormatDateTime Format = "datetime"
	FormatDuration Format = "duration"
	FormatNumber   Format = "number"
	FormatText     Format = "text"
)

// Rule is one row of the table: the expectations for a single type.
type Rule struct {
	Type        string            `json:"type"                  yaml:"type"`
	Description string            `json:"description"           yaml:"description"`
	Category    string            `json:"category"              yaml:"category"`
	UseCases    []string          `json:"use_cases"             yaml:"use_cases"`
	RichResult  bool              `json:"rich_result"           yaml:"rich_result"`
	Importance  Importance        `json:"importance"            yaml:"importance"`
	Required    []string          `json:"required_fields"       yaml:"required"`
	Recommended []string          `json:"recommended_fields"    yaml:"recommended"`
	Formats     map[string]Format `json:"formats,omitempty"     yaml:"formats"`
	Example     string            `json:"example"               yaml:"example"`
}

// Scope selects the pages a site expectation applies to.
type Scope string

// Expectation scopes.
const (
	ScopeRoot  Scope = "root"
	ScopeInner Scope = "inner"
)

// SiteExpectation requires one of several types on a class of pages.
type SiteExpectation struct {
	ID          string          `json:"id"          yaml:"id"`
	Scope       Scope           `json:"scope"       yaml:"scope"`
	AnyOf       []string        `json:"any_of"      yaml:"any_of"`
	Severity    domain.Severity `json:"severity"    yaml:"severity"`
	Impact      int             `json:"impact"      yaml:"impact"`
	Effort      domain.Effort   `json:"effort"      yaml:"effort"`
	Title       string          `json:"title"       yaml:"title"`
	Description string          `json:"description" yaml:"description"`
}

// Table is the loaded rule table. It is read-only after loading.
type Table struct {
	Version          int               `yaml:"version"`
	Types            []Rule            `yaml:"types"`
	SiteExpectations []SiteExpectation `yaml:"site_expectations"`

	index map[string]int
	fold  map[string]int
}

// LoadDefault parses the embedded rule table.
func LoadDefault() (*Table, error) {
	return Parse(defaultRules)
}

// Load parses the rule table at path, or the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a rule table document.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}

	t.index = make(map[string]int, len(t.Types))
	t.fold = make(map[string]int, len(t.Types))
	for i := range t.Types {
		r := &t.Types[i]
		if err := r.check(); err != nil {
			return nil, err
		}
		if _, dup := t.index[r.Type]; dup {
			return nil, fmt.Errorf("rule table: duplicate type %q", r.Type)
		}
		t.index[r.Type] = i
		t.fold[strings.ToLower(r.Type)] = i
	}

	for _, e := range t.SiteExpectations {
		if err := e.check(); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *Rule) check() error {
	if r.Type == "" {
		return errors.New("rule table: row without type")
	}
	switch r.Importance {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
	case "":
		r.Importance = ImportanceMedium
	default:
		return fmt.Errorf("rule table: %s: unknown importance %q", r.Type, r.Importance)
	}
	for field, f := range r.Formats {
		switch f {
		case FormatURL, FormatDate, FormatDateTime, FormatDuration, FormatNumber, FormatText:
		default:
			return fmt.Errorf("rule table: %s.%s: unknown format %q", r.Type, field, f)
		}
	}
	return nil
}

func (e SiteExpectation) check() error {
	if e.ID == "" || len(e.AnyOf) == 0 {
		return errors.New("rule table: site expectation needs id and any_of")
	}
	if e.Scope != ScopeRoot && e.Scope != ScopeInner {
		return fmt.Errorf("rule table: %s: unknown scope %q", e.ID, e.Scope)
	}
	switch e.Severity {
	case domain.SeverityCritical, domain.SeverityWarning, domain.SeverityInfo:
	default:
		return fmt.Errorf("rule table: %s: unknown severity %q", e.ID, e.Severity)
	}
	if e.Impact < 0 {
		return fmt.Errorf("rule table: %s: negative impact", e.ID)
	}
	return nil
}

// Lookup returns the rule for typeName. Exact matches win over
// case-insensitive ones.
func (t *Table) Lookup(typeName string) (Rule, bool) {
	if i, ok := t.index[typeName]; ok {
		return t.Types[i], true
	}
	if i, ok := t.fold[strings.ToLower(typeName)]; ok {
		return t.Types[i], true
	}
	return Rule{}, false
}

// Known reports whether typeName has a rule.
func (t *Table) Known(typeName string) bool {
	_, ok := t.Lookup(typeName)
	return ok
}

// Library returns every rule in table order.
func (t *Table) Library() []Rule {
	out := make([]Rule, len(t.Types))
	copy(out, t.Types)
	return out
}
