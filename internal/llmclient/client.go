package llmclient

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/invoicevision/internal/ai"
	"github.com/local/invoicevision/internal/limiter"
	"github.com/local/invoicevision/internal/metrics"
	"github.com/local/invoicevision/internal/render"
)

// Config is the retry/timeout surface for one provider client.
type Config struct {
	Model          string
	MaxTokens      int
	RequestTimeout time.Duration // per attempt
	TotalBudget    time.Duration // wall clock including retries
	MaxAttempts    int
	BaseDelay      time.Duration
	BackoffFactor  float64
	Jitter         time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.TotalBudget <= 0 {
		c.TotalBudget = 2 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = 2.0
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// Client wraps a provider with retry, backoff and a hard wall-clock budget.
// It obtains raw text only; whether the content is usable is decided
// downstream.
type Client struct {
	provider ai.Client
	cfg      Config
	lim      *limiter.Limiter
}

func New(provider ai.Client, cfg Config, lim *limiter.Limiter) *Client {
	return &Client{provider: provider, cfg: cfg.withDefaults(), lim: lim}
}

// Invoke sends the prompt and encoded page to the provider. Transient
// failures are retried with exponential backoff and jitter until MaxAttempts
// or TotalBudget is exhausted; permanent failures return immediately.
func (c *Client) Invoke(ctx context.Context, prompt string, img render.EncodedImage) (ai.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TotalBudget)
	defer cancel()

	req := ai.Request{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		ImageBase64: img.Base64,
		ImageMIME:   img.MediaType,
		MaxTokens:   c.cfg.MaxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		resp, err := c.attempt(ctx, req, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if isPermanent(err) {
			log.Error().Err(err).Str("provider", c.provider.Name()).Str("model", req.Model).Msg("permanent provider error, no retry")
			return ai.Response{}, &ProviderPermanentError{Provider: c.provider.Name(), Err: err}
		}
		if !isTransient(err) {
			// Unknown classification: treated transient so a flaky provider
			// does not fail the whole document on one odd error.
			log.Warn().Err(err).Str("provider", c.provider.Name()).Msg("unclassified provider error, retrying")
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, attempt); err != nil {
			break
		}
	}

	return ai.Response{}, &ProviderUnavailableError{
		Provider: c.provider.Name(),
		Attempts: c.cfg.MaxAttempts,
		Err:      lastErr,
	}
}

func (c *Client) attempt(ctx context.Context, req ai.Request, attempt int) (ai.Response, error) {
	if c.lim != nil {
		release, err := c.lim.Acquire(ctx, c.provider.Name(), req.Model)
		if err != nil {
			return ai.Response{}, err
		}
		defer release()
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Do(cctx, req)
	dur := time.Since(start)

	result := "success"
	switch {
	case err == nil:
	case cctx.Err() == context.DeadlineExceeded:
		result = "timeout"
		err = context.DeadlineExceeded
	case ai.IsRateLimited(err):
		result = "rate_limited"
	case isPermanent(err):
		result = "permanent"
	default:
		result = "transient"
	}
	metrics.ObserveProvider(c.provider.Name(), req.Model, result, dur)
	if attempt > 1 {
		metrics.IncRetry(c.provider.Name())
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", c.provider.Name()).
			Str("model", req.Model).
			Int("attempt", attempt).
			Dur("duration", dur).
			Str("result", result).
			Msg("provider call failed")
		return ai.Response{}, err
	}

	log.Debug().
		Str("provider", c.provider.Name()).
		Str("model", req.Model).
		Int("attempt", attempt).
		Dur("duration", dur).
		Int("tokens_in", resp.TokensIn).
		Int("tokens_out", resp.TokensOut).
		Msg("provider call success")
	return resp, nil
}

// sleep waits out the backoff for the given attempt, honoring ctx.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.cfg.BackoffFactor)
	}
	if c.cfg.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.cfg.Jitter)))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
