package events

import "errors"

// Domain errors for event encoding and decoding. Snapshot decoding uses
// ErrCorruptSnapshot only when the container itself is unreadable;
// individually malformed records are skipped and counted instead.
var (
	ErrCorruptSnapshot = errors.New("events: corrupt snapshot")
	ErrInvalidValue    = errors.New("events: invalid property value")
	ErrPoolExhausted   = errors.New("events: pool exhausted")
)
