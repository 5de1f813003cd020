package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/invoicevision/internal/invoice"
)

func TestValidateAndNormalize_RoundTrip(t *testing.T) {
	raw := `Here is the extracted data:
{
  "invoice_number": "INV-2024-0042",
  "invoice_date": "12/01/2024",
  "vendor_name": "Acme GmbH",
  "total_amount": "1.234,56",
  "currency": "eur",
  "tax_amount": 234.56,
  "line_items": [
    {"name": "Hosting", "date_from": "01/01/2024", "date_to": "31/01/2024", "amount": 1000.00}
  ]
}`
	rec, issues, err := ValidateAndNormalize(raw, Options{DayFirst: true})
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.NotNil(t, rec.InvoiceNumber)
	assert.Equal(t, "INV-2024-0042", *rec.InvoiceNumber)
	require.NotNil(t, rec.InvoiceDate)
	assert.Equal(t, "2024-01-12", *rec.InvoiceDate)
	require.NotNil(t, rec.VendorName)
	assert.Equal(t, "Acme GmbH", *rec.VendorName)
	require.NotNil(t, rec.TotalAmount)
	assert.InDelta(t, 1234.56, *rec.TotalAmount, 1e-9)
	require.NotNil(t, rec.Currency)
	assert.Equal(t, "EUR", *rec.Currency)
	require.NotNil(t, rec.TaxAmount)
	assert.InDelta(t, 234.56, *rec.TaxAmount, 1e-9)

	require.Len(t, rec.LineItems, 1)
	item := rec.LineItems[0]
	assert.Equal(t, "Hosting", *item.Name)
	assert.Equal(t, "2024-01-01", *item.DateFrom)
	assert.Equal(t, "2024-01-31", *item.DateTo)
	assert.InDelta(t, 1000.0, *item.Amount, 1e-9)
}

func TestValidateAndNormalize_MissingKeysDefaultNull(t *testing.T) {
	rec, issues, err := ValidateAndNormalize(`{}`, Options{})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Nil(t, rec.InvoiceNumber)
	assert.Nil(t, rec.InvoiceDate)
	assert.Nil(t, rec.VendorName)
	assert.Nil(t, rec.TotalAmount)
	assert.Nil(t, rec.Currency)
	assert.Nil(t, rec.TaxAmount)
	assert.NotNil(t, rec.LineItems)
	assert.Empty(t, rec.LineItems)
}

func TestValidateAndNormalize_NullsAlwaysValid(t *testing.T) {
	raw := `{"invoice_number":null,"invoice_date":null,"vendor_name":null,"total_amount":null,"currency":null,"tax_amount":null,"line_items":null}`
	rec, issues, err := ValidateAndNormalize(raw, Options{})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Nil(t, rec.TotalAmount)
	assert.Empty(t, rec.LineItems)
}

func TestValidateAndNormalize_UnknownKeysIgnored(t *testing.T) {
	raw := `{"invoice_number":"A1","confidence":0.93,"notes":"looks fine"}`
	rec, issues, err := ValidateAndNormalize(raw, Options{})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "A1", *rec.InvoiceNumber)
}

func TestValidateAndNormalize_NoJSONIsSchemaError(t *testing.T) {
	_, _, err := ValidateAndNormalize("I could not read the document, sorry.", Options{})
	require.Error(t, err)
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestValidateAndNormalize_BadTotalIsFatal(t *testing.T) {
	raw := `{"total_amount": "not a number"}`
	_, issues, err := ValidateAndNormalize(raw, Options{})
	require.Error(t, err)
	var ferr *FieldTypeError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "total_amount", ferr.Field)
	require.NotEmpty(t, issues)
	assert.Equal(t, invoice.IssueTypeError, issues[0].Kind)

	raw = `{"total_amount": {"value": 10}}`
	_, _, err = ValidateAndNormalize(raw, Options{})
	assert.ErrorAs(t, err, &ferr)
}

func TestValidateAndNormalize_NonCriticalDegradesToNull(t *testing.T) {
	raw := `{
	  "invoice_number": 42,
	  "invoice_date": "sometime in spring",
	  "vendor_name": "Acme",
	  "total_amount": 100,
	  "currency": "DOLLARS",
	  "tax_amount": "n/a",
	  "line_items": [{"name":"a","date_from":"bogus","date_to":"2024-02-01"}]
	}`
	rec, issues, err := ValidateAndNormalize(raw, Options{})
	require.NoError(t, err)

	assert.Nil(t, rec.InvoiceNumber)
	assert.Nil(t, rec.InvoiceDate)
	assert.Nil(t, rec.Currency)
	assert.Nil(t, rec.TaxAmount)
	require.NotNil(t, rec.TotalAmount)
	assert.InDelta(t, 100.0, *rec.TotalAmount, 1e-9)

	require.Len(t, rec.LineItems, 1)
	assert.Nil(t, rec.LineItems[0].DateFrom)
	assert.Equal(t, "2024-02-01", *rec.LineItems[0].DateTo)

	fields := map[string]bool{}
	for _, is := range issues {
		assert.Equal(t, invoice.IssueTypeError, is.Kind)
		fields[is.Field] = true
	}
	for _, f := range []string{"invoice_number", "invoice_date", "currency", "tax_amount", "line_items[0].date_from"} {
		assert.True(t, fields[f], "missing issue for %s", f)
	}
}

func TestValidateAndNormalize_LineItemsNotArrayDegrades(t *testing.T) {
	raw := `{"total_amount": 5, "line_items": "none"}`
	rec, issues, err := ValidateAndNormalize(raw, Options{})
	require.NoError(t, err)
	assert.Empty(t, rec.LineItems)
	require.Len(t, issues, 1)
	assert.Equal(t, "line_items", issues[0].Field)
}
