package agent

import "time"

// Recorder is the external metrics sink for harness executions. The core
// emits samples but does not define their storage.
type Recorder interface {
	// ObserveExecution records one completed harness execution.
	ObserveExecution(agentName, ticketID string, success bool, duration time.Duration)
}

// NoopRecorder discards all samples, for when external metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveExecution does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveExecution(_, _ string, _ bool, _ time.Duration) {
	// No-op
}
