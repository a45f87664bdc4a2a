// Package transport delivers event payloads to the collector over HTTP
// with bounded retries, exponential backoff with jitter, and circuit
// breaker support.
//
// Retry eligibility is decided by explicit error classification: every
// failure is wrapped in an *Error whose Transient field says whether a
// retry can help. Timeouts, connection failures, 5xx responses, and the
// retryable 4xx codes (408, 425, 429) are transient; other client errors
// are permanent and fail immediately.
package transport
