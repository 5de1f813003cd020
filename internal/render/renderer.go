package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"context"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/invoicevision/internal/filetype"
)

// Page is one raster page ready for encoding. For PDFs the data is a JPEG
// produced at the configured DPI; for image inputs it is the original bytes,
// untouched.
type Page struct {
	Num       int
	Data      []byte
	MediaType string
	Width     int
	Height    int
}

// Error reports a structurally broken document: it passed format detection
// but could not be rendered.
type Error struct {
	Page int
	Err  error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options controls PDF rasterization.
type Options struct {
	DPI         int
	JPEGQuality int
	AllPages    bool
	MaxPages    int
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 150
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = 85
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Render turns a detected document into one or more raster pages. PDFs are
// rasterized (first page only unless AllPages); images pass through without
// re-encoding pixel data.
func Render(ctx context.Context, data []byte, info filetype.Info, opts Options) ([]Page, error) {
	opts = opts.withDefaults()

	switch info.Format {
	case filetype.FormatImage:
		return []Page{wrapImage(data, info.MIMEType)}, nil
	case filetype.FormatPDF:
		return renderPDF(ctx, data, opts)
	default:
		return nil, &Error{Err: fmt.Errorf("cannot render format %q", info.Format)}
	}
}

func wrapImage(data []byte, mime string) Page {
	p := Page{Num: 1, Data: data, MediaType: mime}
	// Dimensions are advisory; decode failure leaves them zero.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		p.Width = cfg.Width
		p.Height = cfg.Height
	}
	return p
}

func renderPDF(ctx context.Context, data []byte, opts Options) ([]Page, error) {
	// pdfcpu validates structure and gives the page count before mupdf
	// touches the file. A file that fools the header check dies here.
	total, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("pdf page count: %w", err)}
	}
	if total == 0 {
		return nil, &Error{Err: fmt.Errorf("pdf has no pages")}
	}

	count := 1
	if opts.AllPages {
		count = total
		if count > opts.MaxPages {
			log.Warn().Int("pages", total).Int("max", opts.MaxPages).Msg("page count capped")
			count = opts.MaxPages
		}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("open pdf: %w", err)}
	}
	defer doc.Close()

	pages := make([]Page, count)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := renderPage(doc, i, opts)
			if err != nil {
				return &Error{Page: i + 1, Err: err}
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Int("pages", count).Int("total", total).Int("dpi", opts.DPI).Msg("rendered pdf pages")
	return pages, nil
}

func renderPage(doc *fitz.Document, idx int, opts Options) (Page, error) {
	img, err := doc.ImageDPI(idx, float64(opts.DPI))
	if err != nil {
		return Page{}, err
	}

	bounds := img.Bounds()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return Page{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Page{
		Num:       idx + 1,
		Data:      buf.Bytes(),
		MediaType: "image/jpeg",
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}, nil
}
