package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
//
// Design decision: non-2xx responses and oversized bodies are errors rather
// than successful responses. Callers only ever want usable content, and both
// cases are FetchFailures that fall back to the remote reference.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnexpectedStatus is returned when the server answers with a status
	// outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError carries the status code of a rejected response.
// It matches ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", ErrUnexpectedStatus, e.URL, e.StatusCode)
}

// Unwrap returns ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
