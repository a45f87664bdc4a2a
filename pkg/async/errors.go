package async

import "errors"

var (
	// ErrTimeout indicates an AwaitWithTimeout deadline elapsed before
	// the computation finished.
	ErrTimeout = errors.New("async: await timed out")
	// ErrCanceled indicates a pending operation was canceled, typically
	// during shutdown.
	ErrCanceled = errors.New("async: operation canceled")
)
