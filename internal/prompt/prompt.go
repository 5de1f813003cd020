package prompt

import (
	"fmt"
	"strings"
)

// Placeholder is the single token a template must contain. Build replaces it
// with the bullet-formatted field list.
const Placeholder = "{{fields}}"

// DefaultTemplate is the extraction instruction sent with every page image.
const DefaultTemplate = `You are an invoice data extraction assistant. Analyze the provided invoice image and extract the following fields:
{{fields}}

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation - just the raw JSON object.

The JSON object must follow this schema exactly:
{
  "invoice_number": "string or null",
  "invoice_date": "YYYY-MM-DD or null",
  "vendor_name": "string or null",
  "total_amount": 0.0,
  "currency": "ISO 4217 code or null",
  "tax_amount": 0.0,
  "line_items": [
    { "name": "string or null", "date_from": "YYYY-MM-DD or null", "date_to": "YYYY-MM-DD or null", "amount": 0.0 }
  ]
}

If a field is not present on the invoice, use null. Do not invent values.`

// DefaultFields is the field list substituted into the default template.
var DefaultFields = []string{
	"invoice_number",
	"invoice_date",
	"vendor_name",
	"total_amount",
	"currency",
	"tax_amount",
	"line_items (name, date_from, date_to, amount)",
}

// ValidateTemplate rejects templates that do not contain exactly one
// placeholder. A bad template is a configuration bug, so this runs at startup
// rather than per request.
func ValidateTemplate(tpl string) error {
	switch n := strings.Count(tpl, Placeholder); n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("template missing %s placeholder", Placeholder)
	default:
		return fmt.Errorf("template contains %d %s placeholders, want exactly 1", n, Placeholder)
	}
}

// Build substitutes the placeholder with one "- <field>" bullet per line.
// Fields are trimmed and empty entries dropped; an empty filtered list yields
// an empty substitution. Pure function of its inputs.
func Build(tpl string, fields []string) string {
	var b strings.Builder
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(f)
	}
	return strings.Replace(tpl, Placeholder, b.String(), 1)
}
