package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class categorizes a call failure for retry eligibility.
type Class int

const (
	// ClassRetryable marks transport, timeout and server-side (5xx) failures.
	ClassRetryable Class = iota
	// ClassTerminal marks authentication, rate-limit and other client errors.
	// Terminal failures are never retried.
	ClassTerminal
)

// ServiceError is a classified failure returned by an external service call,
// carrying the HTTP-style status code when one is known.
type ServiceError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Message)
}

// Classify decides retry eligibility for err. Transport errors, timeouts and
// 5xx responses are retryable; authentication (401/403), rate-limit (429) and
// other client errors are terminal. Caller-initiated cancellation is terminal.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}

	if errors.Is(err, context.Canceled) {
		return ClassTerminal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassRetryable
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch {
		case svcErr.StatusCode >= 500:
			return ClassRetryable
		case svcErr.StatusCode == 401, svcErr.StatusCode == 403:
			return ClassTerminal
		case svcErr.StatusCode == 429:
			return ClassTerminal
		case svcErr.StatusCode >= 400:
			return ClassTerminal
		default:
			return ClassRetryable
		}
	}

	// Unclassified errors are assumed to be transport-level.
	return ClassRetryable
}
