package transport

import (
	"sync"
	"time"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen fails calls fast until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen lets a probe call through to test recovery.
	CircuitHalfOpen
)

// String returns the state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults match the delivery pipeline policy.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 2 * time.Minute
)

// CircuitBreaker stops delivery attempts for a cooldown period after
// repeated consecutive failures. After the cooldown the next call is
// allowed through as a probe: success closes the breaker, failure
// re-opens it and restarts the cooldown clock. Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	state    CircuitState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and cools down for cooldown before probing.
// Non-positive arguments select the pipeline defaults.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            CircuitClosed,
	}
}

// Allow reports whether a call may proceed, transitioning from open to
// half-open when the cooldown has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes the breaker and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.openedAt = time.Time{}
}

// RecordFailure extends the failure streak, opening the breaker at the
// threshold. A failed half-open probe re-opens immediately and restarts
// the cooldown.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
			cb.openedAt = time.Now()
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.failures = cb.failureThreshold
		cb.openedAt = time.Now()
	case CircuitOpen:
		cb.openedAt = time.Now()
	}
}

// State returns the breaker position, accounting for an elapsed
// cooldown the way Allow would.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openedAt) >= cb.cooldown {
		return CircuitHalfOpen
	}
	return cb.state
}

// Open reports whether the breaker currently fails calls fast.
func (cb *CircuitBreaker) Open() bool {
	return cb.State() == CircuitOpen
}

// OpenedAt returns when the breaker last opened, zero when closed.
func (cb *CircuitBreaker) OpenedAt() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.openedAt
}

// Reset restores the breaker to its initial closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.openedAt = time.Time{}
}
