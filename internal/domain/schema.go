package domain

// Structured-data syntaxes.
const (
	FormatJSONLD    = "json-ld"
	FormatMicrodata = "microdata"
	FormatRDFa      = "rdfa"
)

// SchemaInstance is one structured-data block found on a page. It is never
// mutated after the extractor creates it.
type SchemaInstance struct {
	Type        string         `json:"type"`
	Types       []string       `json:"types,omitempty"`
	Page        string         `json:"page"`
	Format      string         `json:"format"`
	Properties  map[string]any `json:"properties,omitempty"`
	SyntaxValid bool           `json:"syntax_valid"`
	ParseError  string         `json:"parse_error,omitempty"`
}

// Has reports whether a property is present with a non-empty value.
func (s SchemaInstance) Has(field string) bool {
	v, ok := s.Properties[field]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// SchemaStatus summarizes validation results for one type.
type SchemaStatus string

// Inventory statuses.
const (
	SchemaValid    SchemaStatus = "valid"
	SchemaWarnings SchemaStatus = "warnings"
	SchemaErrors   SchemaStatus = "errors"
)

// SchemaInventoryEntry aggregates instances of one type across a job.
type SchemaInventoryEntry struct {
	Type   string       `json:"type"`
	Count  int          `json:"count"`
	Pages  []string     `json:"pages"`
	Status SchemaStatus `json:"status"`
}
