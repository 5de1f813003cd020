package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/invoicevision/internal/invoice"
)

func fptr(v float64) *float64 { return &v }
func sptr(s string) *string   { return &s }

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func baseRecord() *invoice.Record {
	return &invoice.Record{
		TotalAmount: fptr(100.00),
		TaxAmount:   fptr(10.00),
		LineItems: []invoice.LineItem{
			{Name: sptr("a"), Amount: fptr(50.00)},
			{Name: sptr("b"), Amount: fptr(40.00)},
		},
	}
}

func TestCheckConsistency_TotalsMatch(t *testing.T) {
	issues := CheckConsistency(baseRecord(), Options{Now: fixedNow})
	assert.Empty(t, issues)
}

func TestCheckConsistency_TotalsWithinTolerance(t *testing.T) {
	rec := baseRecord()
	rec.TotalAmount = fptr(100.009)
	issues := CheckConsistency(rec, Options{Now: fixedNow})
	assert.Empty(t, issues)
}

func TestCheckConsistency_TotalsMismatch(t *testing.T) {
	rec := baseRecord()
	rec.LineItems[1].Amount = fptr(30.00) // items now sum to 80
	issues := CheckConsistency(rec, Options{Now: fixedNow})
	require.Len(t, issues, 1)
	assert.Equal(t, invoice.IssueConsistencyWarning, issues[0].Kind)
	assert.Equal(t, "total_amount", issues[0].Field)
}

func TestCheckConsistency_NoAmountsNoCheck(t *testing.T) {
	rec := baseRecord()
	rec.LineItems = []invoice.LineItem{{Name: sptr("a")}, {Name: sptr("b")}}
	assert.Empty(t, CheckConsistency(rec, Options{Now: fixedNow}))

	rec = baseRecord()
	rec.TaxAmount = nil
	assert.Empty(t, CheckConsistency(rec, Options{Now: fixedNow}))
}

func TestCheckConsistency_LineItemDateOrder(t *testing.T) {
	rec := baseRecord()
	rec.LineItems[1].DateFrom = sptr("2024-03-01")
	rec.LineItems[1].DateTo = sptr("2024-02-01")
	issues := CheckConsistency(rec, Options{Now: fixedNow})
	require.Len(t, issues, 1)
	assert.Equal(t, "line_items[1]", issues[0].Field)
	assert.Equal(t, invoice.IssueConsistencyWarning, issues[0].Kind)
}

func TestCheckConsistency_EqualDatesOK(t *testing.T) {
	rec := baseRecord()
	rec.LineItems[0].DateFrom = sptr("2024-02-01")
	rec.LineItems[0].DateTo = sptr("2024-02-01")
	assert.Empty(t, CheckConsistency(rec, Options{Now: fixedNow}))
}

func TestCheckConsistency_FutureInvoiceDate(t *testing.T) {
	rec := baseRecord()
	rec.InvoiceDate = sptr("2026-01-01")
	issues := CheckConsistency(rec, Options{Now: fixedNow})
	require.Len(t, issues, 1)
	assert.Equal(t, "invoice_date", issues[0].Field)

	rec.InvoiceDate = sptr("2024-08-01") // near future, fine
	assert.Empty(t, CheckConsistency(rec, Options{Now: fixedNow}))
}

func TestCheckConsistency_NeverMutates(t *testing.T) {
	rec := baseRecord()
	rec.InvoiceDate = sptr("2030-01-01")
	rec.LineItems[0].DateFrom = sptr("2024-03-01")
	rec.LineItems[0].DateTo = sptr("2024-01-01")
	before := *rec
	_ = CheckConsistency(rec, Options{Now: fixedNow})
	assert.Equal(t, before.TotalAmount, rec.TotalAmount)
	assert.Equal(t, before.InvoiceDate, rec.InvoiceDate)
	assert.Len(t, rec.Warnings, 0)
}
