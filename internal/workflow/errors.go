package workflow

import "fmt"

// UnsupportedFormatError means the input is neither a PDF nor a raster image.
// Nothing was sent to a provider.
type UnsupportedFormatError struct {
	MIMEType string
}

func (e *UnsupportedFormatError) Error() string {
	if e.MIMEType != "" {
		return fmt.Sprintf("unsupported document format (%s)", e.MIMEType)
	}
	return "unsupported document format"
}

// PageError wraps a failure tied to one page of a multi-page document.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
