package schema

import (
	"fmt"
	"slices"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// Rule IDs of the issues the validator emits.
const (
	RuleSyntax         = "schema.syntax"
	RuleMissingType    = "schema.missing_type"
	RuleMissingContext = "schema.missing_context"
	RuleUnknownType    = "schema.unknown_type"
	RuleRequired       = "schema.required"
	RuleRecommended    = "schema.recommended"
	RuleFormat         = "schema.format"
	ruleExpectPrefix   = "schema.expect."
)

// Base impacts.
const (
	impactSyntax             = 10
	impactMissingType        = 8
	impactMissingContext     = 3
	impactUnknownType        = 1
	impactRequiredRich       = 10
	impactRequired           = 6
	impactRecommendedHigh    = 3
	impactRecommendedDefault = 1
	impactFormat             = 3
)

// Validator checks instances against a Table. It is stateless and safe for
// concurrent use.
type Validator struct {
	table *Table
}

// NewValidator creates a Validator over table.
func NewValidator(table *Table) *Validator {
	return &Validator{table: table}
}

// Table returns the rule table in use.
func (v *Validator) Table() *Table {
	return v.table
}

// Validate returns the issues found in one instance. Each issue lists the
// instance's page; impacts are base impacts.
func (v *Validator) Validate(in domain.SchemaInstance) []domain.Issue {
	if !in.SyntaxValid {
		desc := "A JSON-LD block could not be parsed, so search engines ignore it entirely."
		if in.ParseError != "" {
			desc += " " + in.ParseError
		}
		return []domain.Issue{newIssue(RuleSyntax, domain.SeverityWarning,
			"JSON-LD syntax error", desc, in.Page, impactSyntax, domain.EffortLow)}
	}

	var issues []domain.Issue

	if in.Format == domain.FormatJSONLD && !in.Has("@context") {
		issues = append(issues, newIssue(RuleMissingContext, domain.SeverityWarning,
			"JSON-LD block missing @context",
			`Without "@context": "https://schema.org" the vocabulary of the block is undefined.`,
			in.Page, impactMissingContext, domain.EffortLow))
	}

	if in.Type == "" {
		return append(issues, newIssue(RuleMissingType, domain.SeverityCritical,
			"Structured data block missing @type",
			"A structured-data block without a type cannot be matched to any schema.org entity.",
			in.Page, impactMissingType, domain.EffortLow))
	}

	rule, ok := v.table.Lookup(in.Type)
	if !ok {
		return append(issues, newIssue(RuleUnknownType, domain.SeverityInfo,
			fmt.Sprintf("Unrecognized schema type '%s'", in.Type),
			fmt.Sprintf("%s is not covered by the rule table, so its fields were not checked.", in.Type),
			in.Page, impactUnknownType, domain.EffortLow))
	}

	for _, field := range rule.Required {
		if in.Has(field) {
			continue
		}
		impact := impactRequired
		if rule.RichResult {
			impact = impactRequiredRich
		}
		issues = append(issues, newIssue(RuleRequired, domain.SeverityCritical,
			fmt.Sprintf("Missing required field '%s' in %s schema", field, rule.Type),
			fmt.Sprintf("%s markup without %s is ineligible for rich results.", rule.Type, field),
			in.Page, impact, domain.EffortLow))
	}

	for _, field := range rule.Recommended {
		if in.Has(field) {
			continue
		}
		severity, impact := domain.SeverityInfo, impactRecommendedDefault
		if rule.Importance == ImportanceHigh {
			severity, impact = domain.SeverityWarning, impactRecommendedHigh
		}
		issues = append(issues, newIssue(RuleRecommended, severity,
			fmt.Sprintf("Missing recommended field '%s' in %s schema", field, rule.Type),
			fmt.Sprintf("Adding %s gives search engines a more complete %s entity.", field, rule.Type),
			in.Page, impact, domain.EffortLow))
	}

	for _, field := range sortedKeys(rule.Formats) {
		f := rule.Formats[field]
		value, present := in.Properties[field]
		if !present || !in.Has(field) || matchesFormat(f, value) {
			continue
		}
		issues = append(issues, newIssue(RuleFormat, domain.SeverityWarning,
			fmt.Sprintf("Invalid %s format for '%s' in %s schema", f, field, rule.Type),
			fmt.Sprintf("The value of %s should be a valid %s.", field, f),
			in.Page, impactFormat, domain.EffortLow))
	}

	return issues
}

// CheckPage applies site expectations to one page given the declared types
// found on it. isRoot selects root-scoped rather than inner-scoped rules.
func (v *Validator) CheckPage(pageURL string, isRoot bool, types []string) []domain.Issue {
	scope := ScopeInner
	if isRoot {
		scope = ScopeRoot
	}

	var issues []domain.Issue
	for _, e := range v.table.SiteExpectations {
		if e.Scope != scope || containsAny(types, e.AnyOf) {
			continue
		}
		issues = append(issues, newIssue(ruleExpectPrefix+e.ID, e.Severity,
			e.Title, e.Description, pageURL, e.Impact, e.Effort))
	}
	return issues
}

func newIssue(ruleID string, severity domain.Severity, title, description, page string, impact int, effort domain.Effort) domain.Issue {
	var pages []string
	if page != "" {
		pages = []string{page}
	}
	return domain.Issue{
		RuleID:      ruleID,
		Severity:    severity,
		Category:    domain.CategorySchema,
		Dimension:   domain.DimensionSchema,
		Title:       title,
		Description: description,
		Pages:       pages,
		BaseImpact:  impact,
		Impact:      impact,
		Effort:      effort,
	}
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]Format) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
