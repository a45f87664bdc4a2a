package eventqueue

import "errors"

// Domain errors for queue persistence. Snapshot read/write problems are
// wrapped with these so callers can classify without string matching.
var (
	ErrQueueClosed   = errors.New("eventqueue: queue closed")
	ErrReloadFailed  = errors.New("eventqueue: snapshot reload failed")
	ErrPersistFailed = errors.New("eventqueue: snapshot persist failed")
)
