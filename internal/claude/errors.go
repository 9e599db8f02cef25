package claude

import "fmt"

// AuthError is returned on HTTP 401/403. Fatal: the credential must be
// fixed in configuration, so it is never retried.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): check the Anthropic API key", e.Status)
}

// RateLimitError is returned on HTTP 429 after retries are exhausted.
type RateLimitError struct {
	Status int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.Status)
}

// NetworkError wraps transport failures and timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means a response arrived but could not be parsed
// into reasoning steps and a final answer. Raw carries the unparsed text
// for diagnostics. Not retried.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

// retryable reports whether err is worth another attempt. Only transient
// transport failures and rate limits qualify.
func retryable(err error) bool {
	switch err.(type) {
	case *NetworkError, *RateLimitError:
		return true
	}
	return false
}
