package ai

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single vision extraction call: one prompt, one page image.
type Request struct {
	Model       string
	Prompt      string
	ImageBase64 string
	ImageMIME   string
	MaxTokens   int
}

// Response is the raw provider payload. Content is opaque here; parsing and
// validation happen downstream.
type Response struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client interface for providers like OpenAI, Anthropic.
type Client interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

// HTTPError is a non-2xx provider response, kept with enough detail for
// transient/permanent classification upstream.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}
