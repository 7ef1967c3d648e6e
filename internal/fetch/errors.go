package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by provider clients.
var (
	// ErrNotFound indicates the provider has no such resource.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the provider throttled us and retries were exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnavailable indicates a network failure or a provider-side error.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAuthError indicates a missing or rejected API key.
	ErrAuthError = errors.New("authentication error")

	// ErrInvalidResponse indicates a body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")
)

// HTTPError is a non-2xx response from a provider.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string // leading bytes of the response body, for diagnostics
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("HTTP %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps the status code onto the sentinel errors so callers can use
// errors.Is without inspecting codes.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrAuthError
	case e.StatusCode >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnavailable returns true if the provider could not be reached or failed.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthError)
}

// retryable reports whether a request that failed with err may succeed if
// repeated.
func retryable(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err)
}
