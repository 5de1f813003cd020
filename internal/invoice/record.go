package invoice

import "fmt"

// Record is the canonical extraction output. Pointer fields are nil when the
// document did not yield a value (or the value failed normalization and was
// degraded with a warning).
type Record struct {
	InvoiceNumber *string    `json:"invoice_number"`
	InvoiceDate   *string    `json:"invoice_date"`
	VendorName    *string    `json:"vendor_name"`
	TotalAmount   *float64   `json:"total_amount"`
	Currency      *string    `json:"currency"`
	TaxAmount     *float64   `json:"tax_amount"`
	LineItems     []LineItem `json:"line_items"`
	Warnings      []Warning  `json:"warnings"`
}

// LineItem is one billed position. Dates are normalized YYYY-MM-DD. Amount is
// not part of the output contract; it is kept when the model volunteers one so
// the totals cross-check has something to sum.
type LineItem struct {
	Name     *string  `json:"name"`
	DateFrom *string  `json:"date_from"`
	DateTo   *string  `json:"date_to"`
	Amount   *float64 `json:"amount,omitempty"`
}

// Warning is a non-fatal finding attached to an otherwise successful record.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// IssueKind distinguishes fatal validation defects from advisory findings.
type IssueKind string

const (
	IssueSchemaError        IssueKind = "schema_error"
	IssueTypeError          IssueKind = "type_error"
	IssueConsistencyWarning IssueKind = "consistency_warning"
)

// Issue is a single validation or consistency finding for a field path.
type Issue struct {
	Kind    IssueKind
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Kind, i.Field, i.Message)
}

// Warning converts an issue to its attached-output form.
func (i Issue) Warning() Warning {
	return Warning{Field: i.Field, Message: i.Message}
}

// AttachWarnings appends issues to the record's warnings array.
func (r *Record) AttachWarnings(issues []Issue) {
	for _, is := range issues {
		r.Warnings = append(r.Warnings, is.Warning())
	}
}
