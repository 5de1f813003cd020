package extract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/local/invoicevision/internal/invoice"
)

// SchemaError means the model output is not usable at all: no parseable JSON
// object, or a critical field failed its type check.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return "schema error: " + e.Msg }

// FieldTypeError is a fatal type defect on a business-critical field.
type FieldTypeError struct {
	Field string
	Msg   string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Msg)
}

// Options are the policy knobs for validation and consistency checking.
type Options struct {
	DayFirst      bool    // slashed numeric dates read day-first
	Tolerance     float64 // absolute tolerance for the totals cross-check
	MaxFutureDays int     // invoice_date may not exceed now by this many days
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = 0.01
	}
	if o.MaxFutureDays <= 0 {
		o.MaxFutureDays = 365
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// recognized top-level keys; everything else the model adds is ignored.
type rawRecord struct {
	InvoiceNumber json.RawMessage `json:"invoice_number"`
	InvoiceDate   json.RawMessage `json:"invoice_date"`
	VendorName    json.RawMessage `json:"vendor_name"`
	TotalAmount   json.RawMessage `json:"total_amount"`
	Currency      json.RawMessage `json:"currency"`
	TaxAmount     json.RawMessage `json:"tax_amount"`
	LineItems     json.RawMessage `json:"line_items"`
}

type rawLineItem struct {
	Name     json.RawMessage `json:"name"`
	DateFrom json.RawMessage `json:"date_from"`
	DateTo   json.RawMessage `json:"date_to"`
	Amount   json.RawMessage `json:"amount"`
}

// ValidateAndNormalize turns raw model output into a schema-conformant
// record. Type defects on non-critical fields degrade that field to null and
// come back as issues; a defect on total_amount (or unusable JSON) is fatal.
func ValidateAndNormalize(raw string, opts Options) (*invoice.Record, []invoice.Issue, error) {
	opts = opts.withDefaults()

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, nil, &SchemaError{Msg: "no JSON object found in model output"}
	}

	var rr rawRecord
	if err := json.Unmarshal([]byte(obj), &rr); err != nil {
		return nil, nil, &SchemaError{Msg: fmt.Sprintf("model output is not a JSON object: %v", err)}
	}

	var issues []invoice.Issue
	degrade := func(field, msg string) {
		issues = append(issues, invoice.Issue{Kind: invoice.IssueTypeError, Field: field, Message: msg})
	}

	rec := &invoice.Record{LineItems: []invoice.LineItem{}, Warnings: []invoice.Warning{}}

	rec.InvoiceNumber = parseString(rr.InvoiceNumber, "invoice_number", degrade)
	rec.VendorName = parseString(rr.VendorName, "vendor_name", degrade)

	if s := parseString(rr.InvoiceDate, "invoice_date", degrade); s != nil {
		if norm, err := NormalizeDate(*s, opts.DayFirst); err == nil {
			rec.InvoiceDate = &norm
		} else {
			degrade("invoice_date", err.Error())
		}
	}

	// total_amount is business-critical: a type defect here fails the call.
	total, err := parseAmount(rr.TotalAmount)
	if err != nil {
		issues = append(issues, invoice.Issue{Kind: invoice.IssueTypeError, Field: "total_amount", Message: err.Error()})
		return nil, issues, &FieldTypeError{Field: "total_amount", Msg: err.Error()}
	}
	rec.TotalAmount = total

	if tax, err := parseAmount(rr.TaxAmount); err == nil {
		rec.TaxAmount = tax
	} else {
		degrade("tax_amount", err.Error())
	}

	if s := parseString(rr.Currency, "currency", degrade); s != nil {
		if code, err := NormalizeCurrency(*s); err == nil {
			rec.Currency = &code
		} else {
			degrade("currency", err.Error())
		}
	}

	rec.LineItems = parseLineItems(rr.LineItems, opts, degrade)

	return rec, issues, nil
}

// parseString accepts a JSON string or null; anything else degrades.
func parseString(raw json.RawMessage, field string, degrade func(string, string)) *string {
	if isAbsent(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		degrade(field, fmt.Sprintf("expected string, got %s", compact(raw)))
		return nil
	}
	return &s
}

// parseAmount accepts a JSON number, a numeric string in either decimal
// convention, or null.
func parseAmount(raw json.RawMessage) (*float64, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := NormalizeAmount(s)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	return nil, fmt.Errorf("expected number, got %s", compact(raw))
}

func parseLineItems(raw json.RawMessage, opts Options, degrade func(string, string)) []invoice.LineItem {
	items := []invoice.LineItem{}
	if isAbsent(raw) {
		return items
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		degrade("line_items", fmt.Sprintf("expected array, got %s", compact(raw)))
		return items
	}

	for i, ri := range rawItems {
		path := fmt.Sprintf("line_items[%d]", i)
		var rli rawLineItem
		if err := json.Unmarshal(ri, &rli); err != nil {
			degrade(path, "expected object")
			continue
		}

		item := invoice.LineItem{}
		item.Name = parseString(rli.Name, path+".name", degrade)

		for _, f := range []struct {
			raw  json.RawMessage
			name string
			dst  **string
		}{
			{rli.DateFrom, path + ".date_from", &item.DateFrom},
			{rli.DateTo, path + ".date_to", &item.DateTo},
		} {
			if s := parseString(f.raw, f.name, degrade); s != nil {
				if norm, err := NormalizeDate(*s, opts.DayFirst); err == nil {
					*f.dst = &norm
				} else {
					degrade(f.name, err.Error())
				}
			}
		}

		if amt, err := parseAmount(rli.Amount); err == nil {
			item.Amount = amt
		} else {
			degrade(path+".amount", err.Error())
		}

		items = append(items, item)
	}
	return items
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func compact(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
