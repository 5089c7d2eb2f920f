package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies why a backend call failed, so callers can
// branch without string matching.
type FailureKind string

const (
	// FailureTimeout covers deadline and network timeouts.
	FailureTimeout FailureKind = "timeout"
	// FailureTransport covers every other connection-level failure.
	FailureTransport FailureKind = "transport"
	// FailureStatus means the backend answered outside 2xx.
	FailureStatus FailureKind = "status"
	// FailureDecode means the response body was not the expected JSON.
	FailureDecode FailureKind = "decode"
)

// APIError is the failure branch of every backend call.
type APIError struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("backend returned status %d", e.Status)
	default:
		return fmt.Sprintf("backend call failed (%s): %v", e.Kind, e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind, defaulting to transport for errors
// that did not come out of this package.
func KindOf(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return FailureTransport
}

func classifyTransport(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Kind: FailureTimeout, Err: err}
	}
	return &APIError{Kind: FailureTransport, Err: err}
}
