package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/extractor"
)

const schemaContext = "https://schema.org"

// SnippetResult is the outcome of validating a pasted JSON-LD document.
type SnippetResult struct {
	Valid     bool                    `json:"valid"`
	Instances []domain.SchemaInstance `json:"instances"`
	Issues    []domain.Issue          `json:"issues"`
}

// ValidateSnippet parses raw as JSON-LD and validates every instance in it.
// Valid is false when any critical issue is found.
func (v *Validator) ValidateSnippet(raw []byte) SnippetResult {
	instances := extractor.ParseJSONLD(raw, "", extractor.Options{KnownType: v.table.Known})

	res := SnippetResult{Valid: true, Instances: instances, Issues: []domain.Issue{}}
	for _, in := range instances {
		for _, issue := range v.Validate(in) {
			if issue.Severity == domain.SeverityCritical || issue.RuleID == RuleSyntax {
				res.Valid = false
			}
			res.Issues = append(res.Issues, issue)
		}
	}
	return res
}

// GenerateResult is a JSON-LD document built for one type.
type GenerateResult struct {
	Document json.RawMessage `json:"document"`
	Missing  []string        `json:"missing_required"`
}

// Generate builds a JSON-LD document of typeName from fields. Blank string
// values are dropped. Required fields that were not supplied are listed in
// Missing; the document is produced regardless.
func (v *Validator) Generate(typeName string, fields map[string]any) (GenerateResult, error) {
	rule, ok := v.table.Lookup(typeName)
	if !ok {
		return GenerateResult{}, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	doc := map[string]any{
		"@context": schemaContext,
		"@type":    rule.Type,
	}
	for k, val := range fields {
		if strings.HasPrefix(k, "@") {
			continue
		}
		if s, isString := val.(string); isString {
			if strings.TrimSpace(s) == "" {
				continue
			}
			val = strings.TrimSpace(s)
		}
		doc[k] = val
	}

	missing := []string{}
	for _, field := range rule.Required {
		if _, present := doc[field]; !present {
			missing = append(missing, field)
		}
	}

	// encoding/json sorts map keys, so @context and @type come first.
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal json-ld: %w", err)
	}
	return GenerateResult{Document: body, Missing: missing}, nil
}
