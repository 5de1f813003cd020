package extract

import (
	"fmt"
	"math"
	"time"

	"github.com/local/invoicevision/internal/invoice"
)

// CheckConsistency applies business cross-checks to a validated record. It
// only ever produces warnings: extracted values that disagree with each other
// are suspicious, not invalid. The record is never mutated.
func CheckConsistency(rec *invoice.Record, opts Options) []invoice.Issue {
	opts = opts.withDefaults()
	var issues []invoice.Issue

	warn := func(field, msg string) {
		issues = append(issues, invoice.Issue{Kind: invoice.IssueConsistencyWarning, Field: field, Message: msg})
	}

	// total = sum(line item amounts) + tax, when the model gave us amounts.
	if rec.TotalAmount != nil && rec.TaxAmount != nil {
		var sum float64
		var have int
		for _, item := range rec.LineItems {
			if item.Amount != nil {
				sum += *item.Amount
				have++
			}
		}
		if have > 0 {
			expected := sum + *rec.TaxAmount
			if math.Abs(expected-*rec.TotalAmount) > opts.Tolerance {
				warn("total_amount", fmt.Sprintf(
					"total_amount %.2f does not match line items %.2f + tax %.2f",
					*rec.TotalAmount, sum, *rec.TaxAmount))
			}
		}
	}

	for i, item := range rec.LineItems {
		if item.DateFrom == nil || item.DateTo == nil {
			continue
		}
		from, err1 := time.Parse("2006-01-02", *item.DateFrom)
		to, err2 := time.Parse("2006-01-02", *item.DateTo)
		if err1 != nil || err2 != nil {
			continue
		}
		if from.After(to) {
			warn(fmt.Sprintf("line_items[%d]", i), fmt.Sprintf(
				"date_from %s is after date_to %s", *item.DateFrom, *item.DateTo))
		}
	}

	if rec.InvoiceDate != nil {
		if d, err := time.Parse("2006-01-02", *rec.InvoiceDate); err == nil {
			limit := opts.Now().AddDate(0, 0, opts.MaxFutureDays)
			if d.After(limit) {
				warn("invoice_date", fmt.Sprintf(
					"invoice_date %s is more than %d days in the future", *rec.InvoiceDate, opts.MaxFutureDays))
			}
		}
	}

	return issues
}
