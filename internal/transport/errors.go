package transport

import (
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx platform response surfaced as an error. It keeps
// enough of the HTTP exchange to classify the failure and to honor server
// retry guidance.
type APIError struct {
	// StatusCode is the HTTP status the platform returned.
	StatusCode int

	// Message is the error detail extracted from the response body, or the
	// status text when the body carried none.
	Message string

	// RequestID is the platform's request correlation ID, when present.
	RequestID string

	// RetryAfter is the server-advised wait before retrying, zero when the
	// response carried no guidance.
	RetryAfter time.Duration
}

// Error returns a formatted message with status and detail.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("platform returned %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("platform returned %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed on retry. Rate limits
// and server-side failures are retryable; client errors are not.
func (e *APIError) IsRetryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the server-advised retry delay, zero when none was
// provided. Satisfies the retry middleware's after-provider interface.
func (e *APIError) GetRetryAfter() time.Duration { return e.RetryAfter }

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// RateLimited reports whether the error is a 429.
func (e *APIError) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }
