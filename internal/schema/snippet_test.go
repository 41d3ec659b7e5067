package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/schema"
)

func TestValidateSnippet(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	ok := v.ValidateSnippet([]byte(`{"@context":"https://schema.org","@type":"Organization","name":"Acme","url":"https://acme.example"}`))
	assert.True(t, ok.Valid)
	require.Len(t, ok.Instances, 1)
	assert.Equal(t, "Organization", ok.Instances[0].Type)

	missing := v.ValidateSnippet([]byte(`{"@context":"https://schema.org","@type":"Organization","name":"Acme"}`))
	assert.False(t, missing.Valid)

	broken := v.ValidateSnippet([]byte(`{"@type": "Organization",`))
	assert.False(t, broken.Valid)
	require.Len(t, broken.Issues, 1)
	assert.Equal(t, schema.RuleSyntax, broken.Issues[0].RuleID)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	res, err := v.Generate("Product", map[string]any{
		"name":        " Executive Widget ",
		"description": "",
		"@type":       "Thing",
		"offers":      map[string]any{"@type": "Offer", "price": "29.99"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Missing)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(res.Document, &doc))
	assert.Equal(t, "https://schema.org", doc["@context"])
	assert.Equal(t, "Product", doc["@type"])
	assert.Equal(t, "Executive Widget", doc["name"])
	assert.NotContains(t, doc, "description")

	partial, err := v.Generate("Article", map[string]any{"headline": "Hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"image", "datePublished"}, partial.Missing)

	_, err = v.Generate("Recipe", nil)
	require.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestGenerate_RoundTripsThroughValidator(t *testing.T) {
	t.Parallel()

	v := newValidator(t)

	for _, rule := range v.Table().Library() {
		var example map[string]any
		require.NoError(t, json.Unmarshal([]byte(rule.Example), &example), rule.Type)

		res, err := v.Generate(rule.Type, example)
		require.NoError(t, err, rule.Type)

		checked := v.ValidateSnippet(res.Document)
		assert.True(t, checked.Valid, "%s example should validate: %v", rule.Type, checked.Issues)
		for _, issue := range checked.Issues {
			assert.NotEqual(t, schema.RuleFormat, issue.RuleID, "%s: %s", rule.Type, issue.Title)
			assert.NotEqual(t, schema.RuleRequired, issue.RuleID, "%s: %s", rule.Type, issue.Title)
		}
	}
}
