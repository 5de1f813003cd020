package workflow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/invoicevision/internal/ai"
	"github.com/local/invoicevision/internal/extract"
	"github.com/local/invoicevision/internal/invoice"
	"github.com/local/invoicevision/internal/render"
)

type stubInvoker struct {
	text  string
	err   error
	calls int
	seen  []render.EncodedImage
}

func (s *stubInvoker) Invoke(_ context.Context, _ string, img render.EncodedImage) (ai.Response, error) {
	s.calls++
	s.seen = append(s.seen, img)
	if s.err != nil {
		return ai.Response{}, s.err
	}
	return ai.Response{Text: s.text, TokensIn: 100, TokensOut: 50}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixedOpts() Options {
	return Options{Extract: extract.Options{DayFirst: true}}
}

const noisyResponse = "Here is what I found:\n```json\n" + `{
  "invoice_number": "F-2024-17",
  "invoice_date": "15/03/2024",
  "vendor_name": "Nordwind AG",
  "total_amount": "100,00",
  "currency": "eur",
  "tax_amount": 10.0,
  "line_items": [
    {"name": "Consulting", "date_from": "01/03/2024", "date_to": "31/03/2024", "amount": 80.0}
  ]
}` + "\n```"

func TestWorkflowRun_ImageHappyPath(t *testing.T) {
	stub := &stubInvoker{text: noisyResponse}
	w, err := New(stub, fixedOpts())
	require.NoError(t, err)

	res, err := w.Run(context.Background(), pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)
	assert.Equal(t, "image/png", stub.seen[0].MediaType)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 100, res.TokensIn)
	assert.Equal(t, 50, res.TokensOut)

	rec := res.Record
	assert.Equal(t, "F-2024-17", *rec.InvoiceNumber)
	assert.Equal(t, "2024-03-15", *rec.InvoiceDate)
	assert.InDelta(t, 100.0, *rec.TotalAmount, 1e-9)
	assert.Equal(t, "EUR", *rec.Currency)
	require.Len(t, rec.LineItems, 1)

	// 80 + 10 != 100: cross-check must flag it, not fail the run.
	require.Len(t, rec.Warnings, 1)
	assert.Equal(t, "total_amount", rec.Warnings[0].Field)
}

func TestWorkflowRun_UnknownFormat(t *testing.T) {
	stub := &stubInvoker{text: noisyResponse}
	w, err := New(stub, fixedOpts())
	require.NoError(t, err)

	_, err = w.Run(context.Background(), []byte("plain text, not a document"))
	require.Error(t, err)
	var uerr *UnsupportedFormatError
	assert.ErrorAs(t, err, &uerr)
	assert.Zero(t, stub.calls, "provider must not be called for unsupported input")
}

func TestWorkflowRun_ProviderErrorPropagates(t *testing.T) {
	wantErr := errors.New("provider exhausted")
	w, err := New(&stubInvoker{err: wantErr}, fixedOpts())
	require.NoError(t, err)

	_, err = w.Run(context.Background(), pngBytes(t))
	require.Error(t, err)
	var perr *PageError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Page)
	assert.ErrorIs(t, err, wantErr)
}

func TestWorkflowRun_UnusableOutputFails(t *testing.T) {
	w, err := New(&stubInvoker{text: "I cannot read this image."}, fixedOpts())
	require.NoError(t, err)

	_, err = w.Run(context.Background(), pngBytes(t))
	require.Error(t, err)
	var serr *extract.SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestNew_RejectsBadTemplate(t *testing.T) {
	_, err := New(&stubInvoker{}, Options{Template: "no placeholder here"})
	assert.Error(t, err)
}

func TestMergeOutcomes(t *testing.T) {
	s := func(v string) *string { return &v }
	f := func(v float64) *float64 { return &v }

	first := &invoice.Record{
		InvoiceNumber: s("A-1"),
		TotalAmount:   f(250),
		LineItems:     []invoice.LineItem{{Name: s("one")}},
	}
	second := &invoice.Record{
		InvoiceNumber: s("B-2"), // loses to page 1
		VendorName:    s("Acme"),
		LineItems:     []invoice.LineItem{{Name: s("two")}, {Name: s("three")}},
	}

	merged, issues := mergeOutcomes([]pageOutcome{
		{record: first, issues: []invoice.Issue{{Kind: invoice.IssueTypeError, Field: "currency"}}},
		{record: second},
	})
	require.Len(t, issues, 1)
	assert.Equal(t, "currency", issues[0].Field)
	assert.Equal(t, "A-1", *merged.InvoiceNumber)
	assert.Equal(t, "Acme", *merged.VendorName)
	assert.InDelta(t, 250.0, *merged.TotalAmount, 1e-9)
	require.Len(t, merged.LineItems, 3)
	assert.Equal(t, "one", *merged.LineItems[0].Name)
	assert.Equal(t, "three", *merged.LineItems[2].Name)
}
