package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

var rdfaValueAttrs = []string{"content", "href", "src", "resource", "datetime"}

// extractRDFa returns one instance per top-level typeof element.
func extractRDFa(doc *goquery.Document, pageURL string, opts Options) []domain.SchemaInstance {
	var out []domain.SchemaInstance

	doc.Find("[typeof]").Each(func(_ int, item *goquery.Selection) {
		if _, isProp := item.Attr("property"); isProp {
			return
		}
		typeof, _ := item.Attr("typeof")
		types := splitTypes(typeof)
		out = append(out, domain.SchemaInstance{
			Type:        declaredType(types, opts),
			Types:       types,
			Page:        pageURL,
			Format:      domain.FormatRDFa,
			Properties:  rdfaProperties(item),
			SyntaxValid: true,
		})
	})

	return out
}

func rdfaProperties(item *goquery.Selection) map[string]any {
	props := make(map[string]any)

	item.Find("[property]").Each(func(_ int, prop *goquery.Selection) {
		if !sameNode(owner(prop, "[typeof]"), item) {
			return
		}

		var value any
		if typeof, nested := prop.Attr("typeof"); nested {
			child := rdfaProperties(prop)
			if types := splitTypes(typeof); len(types) > 0 {
				child["@type"] = types[0]
			}
			value = child
		} else {
			value = propertyValue(prop, rdfaValueAttrs...)
		}

		names, _ := prop.Attr("property")
		for _, name := range strings.Fields(names) {
			addProperty(props, stripVocabulary(name), value)
		}
	})

	return props
}
