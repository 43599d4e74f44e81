package transport

import (
	"sync"
	"time"
)

// HealthStatus is a snapshot of a transport's recent behavior.
type HealthStatus struct {
	Available     bool
	ErrorRate     float64
	Latency       time.Duration
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// Monitor tracks per-transport health. Both transports embed one and
// expose the snapshot through their Health methods.
type Monitor struct {
	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewMonitor creates a Monitor that starts out available.
func NewMonitor() *Monitor {
	return &Monitor{
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// Health returns the current health snapshot.
func (m *Monitor) Health() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

// Available reports whether the transport is considered usable.
func (m *Monitor) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health.Available
}

func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successCount++
	m.requestCount++
	m.totalLatency += latency
	m.health.LastSuccessAt = time.Now()
	m.health.Available = true

	if m.requestCount > 0 {
		m.health.ErrorRate = float64(m.failureCount) / float64(m.requestCount)
	}
	if m.successCount > 0 {
		m.health.Latency = m.totalLatency / time.Duration(m.successCount)
	}
}

func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount++
	m.requestCount++
	m.health.LastFailureAt = time.Now()

	if m.requestCount > 0 {
		m.health.ErrorRate = float64(m.failureCount) / float64(m.requestCount)
	}

	if m.health.ErrorRate > 0.5 {
		m.health.Available = false
	}
}
