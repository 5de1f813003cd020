package filetype

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Format classifies a source document for the extraction pipeline.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatImage   Format = "image"
	FormatUnknown Format = "unknown"
)

// pdfMagic is the only PDF heuristic in use. Callers depend on the exact
// "first bytes equal %PDF-" rule, so nothing else may promote a file to PDF.
var pdfMagic = []byte("%PDF-")

// Info describes the detected type of a raw byte payload.
type Info struct {
	Format   Format
	MIMEType string
}

// Detect classifies raw bytes using magic bytes only. It never fails: inputs
// that are empty, truncated or unrecognized come back as FormatUnknown.
func Detect(data []byte) Info {
	if bytes.HasPrefix(data, pdfMagic) {
		return Info{Format: FormatPDF, MIMEType: "application/pdf"}
	}

	mtype := mimetype.Detect(data)
	mime := mtype.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	log.Debug().Str("mime", mime).Int("size", len(data)).Msg("detected file type")

	if strings.HasPrefix(mime, "image/") {
		return Info{Format: FormatImage, MIMEType: mime}
	}

	return Info{Format: FormatUnknown, MIMEType: mime}
}

// IsPDF reports whether data begins with the literal %PDF- marker.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
