package llmclient

import "fmt"

// ProviderUnavailableError means every retry attempt was spent on transient
// failures. It preserves the last provider error.
type ProviderUnavailableError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ProviderPermanentError means the provider rejected the request in a way a
// retry cannot fix (bad request shape, content policy).
type ProviderPermanentError struct {
	Provider string
	Err      error
}

func (e *ProviderPermanentError) Error() string {
	return fmt.Sprintf("provider %s rejected request: %v", e.Provider, e.Err)
}

func (e *ProviderPermanentError) Unwrap() error { return e.Err }
