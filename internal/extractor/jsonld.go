package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// extractJSONLD parses every ld+json script independently. A block that is
// not valid JSON yields one instance with SyntaxValid false.
func extractJSONLD(doc *goquery.Document, pageURL string, opts Options) []domain.SchemaInstance {
	var out []domain.SchemaInstance

	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), "application/ld+json") {
			return
		}
		out = append(out, ParseJSONLD([]byte(s.Text()), pageURL, opts)...)
	})

	return out
}

// ParseJSONLD turns one JSON-LD document into instances: one per top-level
// object, per array element, or per @graph member. Duplicate keys resolve
// last-write-wins.
func ParseJSONLD(raw []byte, pageURL string, opts Options) []domain.SchemaInstance {
	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &parsed); err != nil {
		parseErr := &domain.ParseError{Page: pageURL, Format: domain.FormatJSONLD, Err: err}
		return []domain.SchemaInstance{{
			Page:        pageURL,
			Format:      domain.FormatJSONLD,
			SyntaxValid: false,
			ParseError:  parseErr.Error(),
		}}
	}

	var objects []map[string]any
	collectObjects(parsed, nil, &objects)

	out := make([]domain.SchemaInstance, 0, len(objects))
	for _, obj := range objects {
		out = append(out, instanceFromObject(obj, pageURL, opts))
	}
	return out
}

// collectObjects flattens arrays and @graph containers. Graph members
// inherit the container's @context when they have none.
func collectObjects(v any, inherited any, out *[]map[string]any) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectObjects(item, inherited, out)
		}
	case map[string]any:
		ctx, hasCtx := node["@context"]
		if !hasCtx && inherited != nil {
			node["@context"] = inherited
			ctx = inherited
		}
		if graph, ok := node["@graph"]; ok {
			collectObjects(graph, ctx, out)
			return
		}
		*out = append(*out, node)
	}
}

func instanceFromObject(obj map[string]any, pageURL string, opts Options) domain.SchemaInstance {
	types := jsonLDTypes(obj["@type"])
	return domain.SchemaInstance{
		Type:        declaredType(types, opts),
		Types:       types,
		Page:        pageURL,
		Format:      domain.FormatJSONLD,
		Properties:  obj,
		SyntaxValid: true,
	}
}

func jsonLDTypes(v any) []string {
	switch t := v.(type) {
	case string:
		if name := stripVocabulary(t); name != "" {
			return []string{name}
		}
	case []any:
		types := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				if name := stripVocabulary(s); name != "" {
					types = append(types, name)
				}
			}
		}
		return types
	}
	return nil
}
