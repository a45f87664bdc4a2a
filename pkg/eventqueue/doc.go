// Package eventqueue implements the in-memory event buffer of the
// telemetry pipeline: a capacity-bounded FIFO with oldest-first eviction
// accounting, and a durable decorator that snapshots queue contents to a
// storage backend with write debouncing and crash-safe reload.
//
// The bounded queue never fails; it only evicts, reporting every drop
// through a caller-supplied callback. The durable decorator is
// best-effort by contract: persistence failures are logged and the
// in-memory queue stays authoritative.
package eventqueue
