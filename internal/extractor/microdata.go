package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

var microdataValueAttrs = []string{"content", "href", "src", "datetime", "value"}

// extractMicrodata returns one instance per top-level item: an element with
// itemscope and itemtype that is not itself a property of another item.
func extractMicrodata(doc *goquery.Document, pageURL string, opts Options) []domain.SchemaInstance {
	var out []domain.SchemaInstance

	doc.Find("[itemscope][itemtype]").Each(func(_ int, item *goquery.Selection) {
		if _, isProp := item.Attr("itemprop"); isProp {
			return
		}
		itemtype, _ := item.Attr("itemtype")
		types := splitTypes(itemtype)
		out = append(out, domain.SchemaInstance{
			Type:        declaredType(types, opts),
			Types:       types,
			Page:        pageURL,
			Format:      domain.FormatMicrodata,
			Properties:  microdataProperties(item),
			SyntaxValid: true,
		})
	})

	return out
}

// microdataProperties collects the itemprops owned by item. Nested items
// become maps carrying their own @type.
func microdataProperties(item *goquery.Selection) map[string]any {
	props := make(map[string]any)

	item.Find("[itemprop]").Each(func(_ int, prop *goquery.Selection) {
		if !sameNode(owner(prop, "[itemscope]"), item) {
			return
		}

		var value any
		if _, nested := prop.Attr("itemscope"); nested {
			child := microdataProperties(prop)
			if itemtype, ok := prop.Attr("itemtype"); ok {
				if types := splitTypes(itemtype); len(types) > 0 {
					child["@type"] = types[0]
				}
			}
			value = child
		} else {
			value = propertyValue(prop, microdataValueAttrs...)
		}

		names, _ := prop.Attr("itemprop")
		for _, name := range strings.Fields(names) {
			addProperty(props, stripVocabulary(name), value)
		}
	})

	return props
}
