package llmclient

import (
	"context"
	"errors"
	"strings"

	"github.com/local/invoicevision/internal/ai"
)

// isTransient reports whether a retry has a chance of succeeding: timeouts,
// rate limits, 5xx-class provider errors, flaky network.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if ai.IsRateLimited(err) {
		return true
	}

	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 && httpErr.StatusCode < 600 {
			return true
		}
		if httpErr.StatusCode == 429 {
			return true
		}
		return false
	}

	// Network-level failures come through as plain errors from the transport.
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	return false
}

// isPermanent reports whether the request itself is unacceptable: 4xx other
// than 429, content policy refusal. No retry.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}

	if ai.IsContentRefused(err) {
		return true
	}

	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "malformed")
}
