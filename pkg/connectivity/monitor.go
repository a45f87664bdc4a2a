package connectivity

import (
	"log/slog"
	"sync"
)

// Status is the observed connection state.
type Status int

const (
	// Connected means deliveries are expected to succeed.
	Connected Status = iota
	// Disconnected means deliveries are expected to fail and should not
	// be attempted.
	Disconnected
)

// String returns the status name.
func (s Status) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Listener observes status transitions.
type Listener func(Status)

// DefaultFailureThreshold is the consecutive delivery failure count that
// flips the monitor to disconnected. It sits above the circuit breaker
// threshold so short failure streaks trip the breaker first and only a
// longer outage is classified as loss of connectivity.
const DefaultFailureThreshold = 10

// Monitor is a thread-safe connection status observable. The zero value
// is not usable; construct with NewMonitor.
type Monitor struct {
	mu        sync.Mutex
	status    Status
	failures  int
	threshold int
	listeners []Listener
	log       *slog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithFailureThreshold overrides the failure streak that transitions to
// disconnected.
func WithFailureThreshold(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// WithInitialStatus sets the starting status; the default is Connected.
func WithInitialStatus(s Status) MonitorOption {
	return func(m *Monitor) { m.status = s }
}

// WithLogger sets the logger for transition diagnostics.
func WithLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMonitor creates a Monitor that starts connected.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		status:    Connected,
		threshold: DefaultFailureThreshold,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current connection state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connected reports whether the monitor currently believes the collector
// is reachable.
func (m *Monitor) Connected() bool {
	return m.Status() == Connected
}

// OnStatusChanged registers a listener for future transitions.
func (m *Monitor) OnStatusChanged(listener Listener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// SetStatus applies a host-reported status change directly, clearing the
// failure streak on reconnect.
func (m *Monitor) SetStatus(status Status) {
	m.mu.Lock()
	if status == Connected {
		m.failures = 0
	}
	changed := m.status != status
	m.status = status
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	if changed {
		m.notify(listeners, status)
	}
}

// RecordSuccess notes a successful delivery, restoring connected state.
func (m *Monitor) RecordSuccess() {
	m.mu.Lock()
	m.failures = 0
	changed := m.status != Connected
	m.status = Connected
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	if changed {
		m.notify(listeners, Connected)
	}
}

// RecordFailure notes a failed delivery; a streak at the threshold
// transitions to disconnected.
func (m *Monitor) RecordFailure(reason string) {
	m.mu.Lock()
	m.failures++
	changed := false
	if m.failures >= m.threshold && m.status != Disconnected {
		m.status = Disconnected
		changed = true
		m.log.Info("connection marked offline",
			"failures", m.failures, "reason", reason)
	}
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	if changed {
		m.notify(listeners, Disconnected)
	}
}

// FailureStreak returns the current consecutive failure count.
func (m *Monitor) FailureStreak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Monitor) snapshotListenersLocked() []Listener {
	out := make([]Listener, len(m.listeners))
	copy(out, m.listeners)
	return out
}

// notify runs outside the lock so listeners may call back into the
// monitor.
func (m *Monitor) notify(listeners []Listener, status Status) {
	for _, l := range listeners {
		l(status)
	}
}
