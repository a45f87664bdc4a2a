package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for delivery outcomes.
var (
	ErrDeliveryFailed = errors.New("transport: delivery failed")
	ErrCircuitOpen    = errors.New("transport: circuit breaker is open")
	ErrInvalidRequest = errors.New("transport: invalid request")
)

// Error is a classified delivery failure. Transient failures may succeed
// on retry; permanent ones will not.
type Error struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s failure posting to %s: status %d", kind, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s failure posting to %s: %v", kind, e.URL, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is classified as a transient delivery
// failure.
func IsTransient(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Transient
}

// IsCircuitOpen reports whether err indicates a fast-failed call against
// an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// transientStatus reports whether an HTTP status code is worth retrying.
// Most 4xx codes mean the request itself is wrong and will not change;
// 408, 425, and 429 are timing or rate-limit conditions that can clear.
func transientStatus(code int) bool {
	if code >= 500 {
		return true
	}
	switch code {
	case 408, 425, 429:
		return true
	default:
		return false
	}
}
