package tracker

// SystemHealth is a coarse pipeline health rating.
type SystemHealth string

const (
	// HealthHealthy means events flow normally.
	HealthHealthy SystemHealth = "healthy"
	// HealthDegraded means the pipeline works but is under pressure.
	HealthDegraded SystemHealth = "degraded"
	// HealthCritical means deliveries are failing or data loss is
	// imminent.
	HealthCritical SystemHealth = "critical"
)

// HealthMetrics is a point-in-time snapshot of pipeline health for the
// host's observability surface.
type HealthMetrics struct {
	SystemHealth        SystemHealth `json:"systemHealth"`
	QueueUtilization    float64      `json:"queueUtilization"`
	QueueSize           int          `json:"queueSize"`
	QueueCapacity       int          `json:"queueCapacity"`
	CircuitBreakerOpen  bool         `json:"circuitBreakerOpen"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalDropped        uint64       `json:"totalDropped"`
	Connected           bool         `json:"connected"`
}

// GetHealthMetrics reports the current pipeline health.
func (t *Tracker) GetHealthMetrics() HealthMetrics {
	t.stateMu.Lock()
	failures := t.failures
	lost := t.requeueLost
	t.stateMu.Unlock()

	m := HealthMetrics{
		QueueUtilization:    t.queue.Utilization(),
		QueueSize:           t.queue.Size(),
		QueueCapacity:       t.queue.Capacity(),
		CircuitBreakerOpen:  t.breaker.Open(),
		ConsecutiveFailures: failures,
		TotalDropped:        t.queue.DroppedTotal() + lost,
		Connected:           t.conn.Connected(),
	}

	switch {
	case m.CircuitBreakerOpen || m.QueueUtilization >= 90:
		m.SystemHealth = HealthCritical
	case failures > 0 || !m.Connected || m.QueueUtilization >= autoFlushThreshold:
		m.SystemHealth = HealthDegraded
	default:
		m.SystemHealth = HealthHealthy
	}
	return m
}
