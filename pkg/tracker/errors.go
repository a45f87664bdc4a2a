package tracker

import "errors"

// Sentinel errors returned by the tracker surface.
var (
	// ErrShutdown is returned by Track and Flush after Shutdown.
	ErrShutdown = errors.New("tracker: shut down")
	// ErrValidation wraps an event rejected by the validator.
	ErrValidation = errors.New("tracker: invalid event")
	// ErrOffline is returned by Flush while the connection monitor
	// reports the collector unreachable.
	ErrOffline = errors.New("tracker: network unavailable")
	// ErrRequeueLost marks a failed delivery whose records could not all
	// be returned to the queue.
	ErrRequeueLost = errors.New("tracker: records lost during requeue")
	// ErrMissingAPIKey is returned by New when no client key is given.
	ErrMissingAPIKey = errors.New("tracker: api key is required")
)

// IsValidation reports whether err is an event validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
