// Package agent provides the execution harness that turns an arbitrary
// processing step into an instrumented, fault-tolerant unit of work.
package agent

import (
	"context"
	"fmt"
	"time"

	"supportflow/pkg/llm"
	"supportflow/pkg/logx"
	"supportflow/pkg/state"
)

// Processor is the pluggable processing step a harness wraps. It receives a
// workflow context and returns the updated context. Implementations may call
// the unified LLM client; they must not retry internally - retries belong to
// the LLM client layer, one harness execution is one attempt.
type Processor interface {
	Process(ctx context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error)
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(ctx context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
	return f(ctx, wc)
}

// Harness uniformly wraps one processing step with timing, logging, metrics,
// error containment, and history tracking. A processing-step error is never
// fatal to the host process; it degrades to a context-level error flag.
type Harness struct {
	name      string
	llm       *llm.Client
	processor Processor
	enabled   bool
	logger    *logx.Logger
	metrics   *Metrics
	recorder  Recorder
}

// Option configures a harness at construction.
type Option func(*Harness)

// WithDisabled constructs the harness disabled; executions are skipped until
// Enable is called.
func WithDisabled() Option {
	return func(h *Harness) { h.enabled = false }
}

// WithRecorder attaches an external metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(h *Harness) { h.recorder = r }
}

// NewHarness creates a harness named name around the given processing step.
// The LLM client is dependency-injected; sharing one client across harnesses
// is a caller choice. A nil client is allowed for steps that never call an LLM.
func NewHarness(name string, client *llm.Client, processor Processor, opts ...Option) *Harness {
	h := &Harness{
		name:      name,
		llm:       client,
		processor: processor,
		enabled:   true,
		logger:    logx.NewLogger("agent." + name),
		metrics:   &Metrics{},
		recorder:  Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger.Info("agent %q initialized (enabled=%v)", name, h.enabled)
	return h
}

// Name returns the harness's agent name.
func (h *Harness) Name() string {
	return h.name
}

// LLM returns the injected LLM client for use by the processing step.
func (h *Harness) LLM() *llm.Client {
	return h.llm
}

// Enabled reports whether the harness will run its step.
func (h *Harness) Enabled() bool {
	return h.enabled
}

// Enable turns the harness on.
func (h *Harness) Enable() {
	h.enabled = true
	h.logger.Info("enabled %s agent", h.name)
}

// Disable turns the harness off; subsequent executions are skipped.
func (h *Harness) Disable() {
	h.enabled = false
	h.logger.Warn("disabled %s agent", h.name)
}

// Execute runs the wrapped processing step against wc with three possible
// outcomes:
//
//   - Disabled: appends "<name> (skipped)" to the history and returns the
//     context otherwise unmodified. No timing or metrics.
//   - Success: appends the plain agent name, records a success sample, and
//     returns the updated context.
//   - Failure: sets the context error to "<name> error: <msg>", appends
//     "<name> (failed)", records a failure sample, and returns the original
//     pre-step context plus the error annotation. Never re-raises.
//
// The step runs against a clone of the context, so a failing step leaves no
// partial mutations behind.
func (h *Harness) Execute(ctx context.Context, wc *state.WorkflowContext) *state.WorkflowContext {
	if !h.enabled {
		h.logger.Warn("agent %q is disabled, skipping", h.name)
		wc.AddAgentToHistory(h.name + " (skipped)")
		return wc
	}

	start := time.Now()
	h.logger.Info("starting %s agent: ticket_id=%s, customer_id=%s, step=%s, messages=%d",
		h.name, wc.TicketID, wc.CustomerID, wc.WorkflowStep, len(wc.Messages))

	updated, err := h.processor.Process(ctx, wc.Clone())
	elapsed := time.Since(start)

	if err != nil {
		h.metrics.RecordFailure(elapsed)
		h.recorder.ObserveExecution(h.name, wc.TicketID.String(), false, elapsed)
		h.logger.Error("error in %s agent: %v (ticket_id=%s, elapsed=%s)",
			h.name, err, wc.TicketID, elapsed)

		wc.SetError(fmt.Sprintf("%s error: %s", h.name, err.Error()))
		wc.AddAgentToHistory(h.name + " (failed)")
		return wc
	}

	if updated == nil {
		// A processor returning nil without an error is a logic bug;
		// keep the original context rather than losing the turn.
		updated = wc
	}

	h.metrics.RecordSuccess(elapsed)
	h.recorder.ObserveExecution(h.name, wc.TicketID.String(), true, elapsed)
	h.logger.Info("completed %s agent: ticket_id=%s, elapsed=%s, step=%s, escalate=%v",
		h.name, updated.TicketID, elapsed, updated.WorkflowStep, updated.ShouldEscalate)

	updated.AddAgentToHistory(h.name)
	return updated
}

// Metrics returns a snapshot of this harness's execution metrics.
func (h *Harness) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}

// ResetMetrics zeroes the harness's metrics.
func (h *Harness) ResetMetrics() {
	h.metrics.Reset()
	h.logger.Info("reset metrics for %s agent", h.name)
}

func (h *Harness) String() string {
	return fmt.Sprintf("Harness(name=%q, enabled=%v, executions=%d)",
		h.name, h.enabled, h.metrics.Snapshot().TotalExecutions)
}
