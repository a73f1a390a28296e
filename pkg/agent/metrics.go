package agent

import (
	"sync"
	"time"
)

// Metrics tracks per-harness execution counts and timings. A harness shared
// across workflow contexts aggregates across all of them, so the counters
// are guarded for concurrent use.
type Metrics struct {
	mu                   sync.Mutex
	totalExecutions      int64
	successfulExecutions int64
	failedExecutions     int64
	totalTime            time.Duration
}

// MetricsSnapshot is a point-in-time copy of a harness's metrics.
type MetricsSnapshot struct {
	TotalExecutions      int64         `json:"total_executions"`
	SuccessfulExecutions int64         `json:"successful_executions"`
	FailedExecutions     int64         `json:"failed_executions"`
	SuccessRate          float64       `json:"success_rate"` // percentage
	TotalTime            time.Duration `json:"total_time"`
	AverageTime          time.Duration `json:"average_time"`
}

// RecordSuccess records one successful execution with its elapsed time.
func (m *Metrics) RecordSuccess(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalExecutions++
	m.successfulExecutions++
	m.totalTime += elapsed
}

// RecordFailure records one failed execution with its elapsed time.
func (m *Metrics) RecordFailure(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalExecutions++
	m.failedExecutions++
	m.totalTime += elapsed
}

// Snapshot returns a copy of the current counters. Success rate is a
// percentage, guarded to 0 when nothing has executed.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		TotalExecutions:      m.totalExecutions,
		SuccessfulExecutions: m.successfulExecutions,
		FailedExecutions:     m.failedExecutions,
		TotalTime:            m.totalTime,
	}
	if m.totalExecutions > 0 {
		snap.SuccessRate = float64(m.successfulExecutions) / float64(m.totalExecutions) * 100
		snap.AverageTime = m.totalTime / time.Duration(m.totalExecutions)
	}
	return snap
}

// Reset zeroes all counters without affecting subsequent executions.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalExecutions = 0
	m.successfulExecutions = 0
	m.failedExecutions = 0
	m.totalTime = 0
}
