package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed   atomic.Uint64
	fillsProcessed    atomic.Uint64
	reconciliations   atomic.Uint64
	componentsSkipped atomic.Uint64
	ordersDispatched  atomic.Uint64
	dispatchErrors    atomic.Uint64
	errorsTotal       atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records an event processing with latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordFill records a processed trade fill.
func (m *Metrics) RecordFill() {
	m.fillsProcessed.Add(1)
}

// RecordReconcile records one reconciliation pass and how many
// components it excluded.
func (m *Metrics) RecordReconcile(skipped int) {
	m.reconciliations.Add(1)
	if skipped > 0 {
		m.componentsSkipped.Add(uint64(skipped))
	}
}

// RecordOrderDispatched records an order accepted by the dispatcher.
func (m *Metrics) RecordOrderDispatched() {
	m.ordersDispatched.Add(1)
}

// RecordDispatchError records an order the dispatcher refused.
func (m *Metrics) RecordDispatchError() {
	m.dispatchErrors.Add(1)
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed   uint64    `json:"events_processed"`
	FillsProcessed    uint64    `json:"fills_processed"`
	Reconciliations   uint64    `json:"reconciliations"`
	ComponentsSkipped uint64    `json:"components_skipped"`
	OrdersDispatched  uint64    `json:"orders_dispatched"`
	DispatchErrors    uint64    `json:"dispatch_errors"`
	ErrorsTotal       uint64    `json:"errors_total"`
	AvgLatencyNs      int64     `json:"avg_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:   m.eventsProcessed.Load(),
		FillsProcessed:    m.fillsProcessed.Load(),
		Reconciliations:   m.reconciliations.Load(),
		ComponentsSkipped: m.componentsSkipped.Load(),
		OrdersDispatched:  m.ordersDispatched.Load(),
		DispatchErrors:    m.dispatchErrors.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.fillsProcessed.Store(0)
	m.reconciliations.Store(0)
	m.componentsSkipped.Store(0)
	m.ordersDispatched.Store(0)
	m.dispatchErrors.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
