package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/invoicevision/internal/ai"
	"github.com/local/invoicevision/internal/extract"
	"github.com/local/invoicevision/internal/filetype"
	"github.com/local/invoicevision/internal/invoice"
	"github.com/local/invoicevision/internal/metrics"
	"github.com/local/invoicevision/internal/prompt"
	"github.com/local/invoicevision/internal/render"
)

// Invoker is the provider call surface the workflow needs. *llmclient.Client
// satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, img render.EncodedImage) (ai.Response, error)
}

// Options configures one workflow instance. Template and Fields feed the
// prompt builder once at construction; the same prompt goes to every page.
type Options struct {
	Template    string
	Fields      []string
	Render      render.Options
	Extract     extract.Options
	PageWorkers int
}

// Result is a finished extraction: the merged record plus bookkeeping the
// callers surface to users and logs.
type Result struct {
	Record    *invoice.Record `json:"record"`
	Pages     int             `json:"pages"`
	TokensIn  int             `json:"tokens_in"`
	TokensOut int             `json:"tokens_out"`
	Duration  time.Duration   `json:"-"`
}

// Workflow runs the full pipeline for one document: detect, render, encode,
// prompt the provider per page, validate, merge, cross-check.
type Workflow struct {
	client Invoker
	opts   Options
	prompt string
}

// New builds a workflow. A broken template fails here, not per request.
func New(client Invoker, opts Options) (*Workflow, error) {
	if opts.Template == "" {
		opts.Template = prompt.DefaultTemplate
	}
	if len(opts.Fields) == 0 {
		opts.Fields = prompt.DefaultFields
	}
	if opts.PageWorkers <= 0 {
		opts.PageWorkers = 2
	}
	if err := prompt.ValidateTemplate(opts.Template); err != nil {
		return nil, err
	}
	return &Workflow{
		client: client,
		opts:   opts,
		prompt: prompt.Build(opts.Template, opts.Fields),
	}, nil
}

type pageOutcome struct {
	record *invoice.Record
	issues []invoice.Issue
	resp   ai.Response
}

// Run processes one document. The returned record carries consistency
// warnings inline; fatal defects (unreadable document, provider exhaustion,
// unusable model output) come back as errors instead.
func (w *Workflow) Run(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()

	info := filetype.Detect(data)
	if info.Format == filetype.FormatUnknown {
		metrics.ObserveExtraction("unsupported", time.Since(start))
		return nil, &UnsupportedFormatError{MIMEType: info.MIMEType}
	}

	pages, err := render.Render(ctx, data, info, w.opts.Render)
	if err != nil {
		metrics.ObserveExtraction("render_error", time.Since(start))
		return nil, fmt.Errorf("render document: %w", err)
	}
	metrics.AddPagesRendered(len(pages))

	outcomes := make([]pageOutcome, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.PageWorkers)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			out, err := w.runPage(gctx, page)
			if err != nil {
				return &PageError{Page: page.Num, Err: err}
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ObserveExtraction("failed", time.Since(start))
		return nil, err
	}

	rec, issues := mergeOutcomes(outcomes)
	issues = append(issues, extract.CheckConsistency(rec, w.opts.Extract)...)
	rec.AttachWarnings(issues)
	for _, is := range issues {
		metrics.IncWarning(string(is.Kind))
	}

	res := &Result{Record: rec, Pages: len(pages), Duration: time.Since(start)}
	for _, out := range outcomes {
		res.TokensIn += out.resp.TokensIn
		res.TokensOut += out.resp.TokensOut
	}

	metrics.ObserveExtraction("success", res.Duration)
	log.Info().
		Str("format", string(info.Format)).
		Int("pages", res.Pages).
		Int("warnings", len(rec.Warnings)).
		Dur("duration", res.Duration).
		Msg("extraction complete")
	return res, nil
}

func (w *Workflow) runPage(ctx context.Context, page render.Page) (pageOutcome, error) {
	resp, err := w.client.Invoke(ctx, w.prompt, render.Encode(page))
	if err != nil {
		return pageOutcome{}, err
	}

	rec, issues, err := extract.ValidateAndNormalize(resp.Text, w.opts.Extract)
	if err != nil {
		return pageOutcome{}, fmt.Errorf("validate model output: %w", err)
	}
	return pageOutcome{record: rec, issues: issues, resp: resp}, nil
}

// mergeOutcomes folds per-page records into one document record. Scalars take
// the first non-null value in page order; line items concatenate.
func mergeOutcomes(outcomes []pageOutcome) (*invoice.Record, []invoice.Issue) {
	merged := &invoice.Record{LineItems: []invoice.LineItem{}, Warnings: []invoice.Warning{}}
	var issues []invoice.Issue

	for _, out := range outcomes {
		r := out.record
		if merged.InvoiceNumber == nil {
			merged.InvoiceNumber = r.InvoiceNumber
		}
		if merged.InvoiceDate == nil {
			merged.InvoiceDate = r.InvoiceDate
		}
		if merged.VendorName == nil {
			merged.VendorName = r.VendorName
		}
		if merged.TotalAmount == nil {
			merged.TotalAmount = r.TotalAmount
		}
		if merged.Currency == nil {
			merged.Currency = r.Currency
		}
		if merged.TaxAmount == nil {
			merged.TaxAmount = r.TaxAmount
		}
		merged.LineItems = append(merged.LineItems, r.LineItems...)
		issues = append(issues, out.issues...)
	}
	return merged, issues
}
