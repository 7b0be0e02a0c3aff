package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks an authentication rejection. It is terminal: callers
// must not retry with the same token.
var ErrUnauthorized = errors.New("unauthorized")

// TransportError wraps a network-level failure. These are the retryable
// class of errors.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from a collaborator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}
