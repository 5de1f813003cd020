package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate("extract:\n{{fields}}\nthanks"))
	assert.Error(t, ValidateTemplate("no placeholder here"))
	assert.Error(t, ValidateTemplate("{{fields}} and again {{fields}}"))
	assert.NoError(t, ValidateTemplate(DefaultTemplate))
}

func TestBuild_Bullets(t *testing.T) {
	out := Build("fields:\n{{fields}}\nend", []string{"invoice_number", "total_amount"})
	assert.Equal(t, "fields:\n- invoice_number\n- total_amount\nend", out)
}

func TestBuild_FiltersBlankFields(t *testing.T) {
	a := Build("x {{fields}} y", []string{"  ", "", "vendor_name"})
	b := Build("x {{fields}} y", []string{"vendor_name"})
	assert.Equal(t, b, a)
	assert.Equal(t, "x - vendor_name y", a)
}

func TestBuild_TrimsFields(t *testing.T) {
	out := Build("{{fields}}", []string{"  currency  "})
	assert.Equal(t, "- currency", out)
}

func TestBuild_EmptyFieldList(t *testing.T) {
	out := Build("a{{fields}}b", nil)
	assert.Equal(t, "ab", out)
	assert.NotContains(t, out, Placeholder)
	assert.NotContains(t, out, "- ")
}

func TestBuild_Pure(t *testing.T) {
	tpl := "t: {{fields}}"
	fields := []string{"a", "b", "c"}
	first := Build(tpl, fields)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Build(tpl, fields))
	}
}

func TestDefaultTemplate_MentionsSchema(t *testing.T) {
	out := Build(DefaultTemplate, DefaultFields)
	assert.True(t, strings.Contains(out, "- invoice_number"))
	assert.True(t, strings.Contains(out, `"line_items"`))
	assert.False(t, strings.Contains(out, Placeholder))
}
