package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportflow/pkg/state"
)

func newTestWorkflowContext(t *testing.T) *state.WorkflowContext {
	t.Helper()
	wc, err := state.New(uuid.New(), uuid.New(), "I was double charged this month", nil)
	require.NoError(t, err)
	return wc
}

func TestExecuteSuccess(t *testing.T) {
	h := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		cat := state.CategoryBilling
		wc.Category = &cat
		wc.SetWorkflowStep("knowledge")
		return wc, nil
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)

	require.NotNil(t, out.Category)
	assert.Equal(t, state.CategoryBilling, *out.Category)
	assert.Equal(t, "knowledge", out.WorkflowStep)
	assert.Equal(t, []string{"intake"}, out.AgentHistory)
	assert.False(t, out.HasError())

	m := h.Metrics()
	assert.Equal(t, int64(1), m.TotalExecutions)
	assert.Equal(t, int64(1), m.SuccessfulExecutions)
	assert.Equal(t, int64(0), m.FailedExecutions)
	assert.Equal(t, 100.0, m.SuccessRate)
}

func TestExecuteFailureContainsError(t *testing.T) {
	h := NewHarness("resolution", nil, ProcessorFunc(func(_ context.Context, _ *state.WorkflowContext) (*state.WorkflowContext, error) {
		return nil, errors.New("no knowledge found")
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)

	require.True(t, out.HasError())
	assert.Equal(t, "resolution error: no knowledge found", *out.Error)
	assert.Equal(t, []string{"resolution (failed)"}, out.AgentHistory)

	m := h.Metrics()
	assert.Equal(t, int64(1), m.TotalExecutions)
	assert.Equal(t, int64(1), m.FailedExecutions)
	assert.Equal(t, 0.0, m.SuccessRate)
}

func TestExecuteFailureLeavesNoPartialMutations(t *testing.T) {
	h := NewHarness("knowledge", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		// Mutate, then fail. None of this may reach the caller.
		require.NoError(t, wc.SetKnowledgeConfidence(0.9))
		require.NoError(t, wc.AddRetrievedDocument("half-written doc", 0.9, nil))
		wc.SetWorkflowStep("resolution")
		return nil, errors.New("vector store unreachable")
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)

	assert.Nil(t, out.KnowledgeConfidence, "partial mutation leaked through failure")
	assert.Empty(t, out.RetrievedDocuments)
	assert.Equal(t, state.StepIntake, out.WorkflowStep)
	require.True(t, out.HasError())
	assert.Equal(t, "knowledge error: vector store unreachable", *out.Error)
}

func TestExecuteDisabledSkips(t *testing.T) {
	processorCalled := false
	h := NewHarness("escalation", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		processorCalled = true
		return wc, nil
	}), WithDisabled())

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)

	assert.False(t, processorCalled)
	assert.Equal(t, []string{"escalation (skipped)"}, out.AgentHistory)
	assert.False(t, out.HasError())

	m := h.Metrics()
	assert.Equal(t, int64(0), m.TotalExecutions, "skipped executions are not counted")
}

func TestEnableDisable(t *testing.T) {
	h := NewHarness("action", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		return wc, nil
	}))

	assert.True(t, h.Enabled())
	h.Disable()
	assert.False(t, h.Enabled())

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)
	assert.Equal(t, []string{"action (skipped)"}, out.AgentHistory)

	h.Enable()
	out = h.Execute(context.Background(), out)
	assert.Equal(t, []string{"action (skipped)", "action"}, out.AgentHistory)
}

func TestExecuteRepeatVisitsSuppressed(t *testing.T) {
	h := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		return wc, nil
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)
	out = h.Execute(context.Background(), out)

	assert.Equal(t, []string{"intake"}, out.AgentHistory, "repeat plain entries are suppressed")
	assert.Equal(t, int64(2), h.Metrics().TotalExecutions, "metrics still count every run")
}

func TestExecuteFailureThenSuccessHistory(t *testing.T) {
	fail := true
	h := NewHarness("resolution", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		if fail {
			return nil, errors.New("no knowledge found")
		}
		return wc, nil
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)
	fail = false
	out = h.Execute(context.Background(), out)

	assert.Equal(t, []string{"resolution (failed)", "resolution"}, out.AgentHistory)
}

func TestExecuteNilReturnWithoutError(t *testing.T) {
	h := NewHarness("broken", nil, ProcessorFunc(func(_ context.Context, _ *state.WorkflowContext) (*state.WorkflowContext, error) {
		return nil, nil
	}))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)

	require.NotNil(t, out)
	assert.Equal(t, []string{"broken"}, out.AgentHistory)
	assert.False(t, out.HasError())
}

// recordingRecorder captures recorder samples for assertion.
type recordingRecorder struct {
	samples []recordedSample
}

type recordedSample struct {
	agent    string
	ticketID string
	success  bool
	duration time.Duration
}

func (r *recordingRecorder) ObserveExecution(agentName, ticketID string, success bool, duration time.Duration) {
	r.samples = append(r.samples, recordedSample{agentName, ticketID, success, duration})
}

func TestExecuteRecorderSamples(t *testing.T) {
	rec := &recordingRecorder{}
	fail := false
	h := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		if fail {
			return nil, errors.New("classifier unavailable")
		}
		return wc, nil
	}), WithRecorder(rec))

	wc := newTestWorkflowContext(t)
	out := h.Execute(context.Background(), wc)
	fail = true
	_ = h.Execute(context.Background(), out)

	require.Len(t, rec.samples, 2)
	assert.Equal(t, "intake", rec.samples[0].agent)
	assert.Equal(t, wc.TicketID.String(), rec.samples[0].ticketID)
	assert.True(t, rec.samples[0].success)
	assert.False(t, rec.samples[1].success)
}

func TestResetMetrics(t *testing.T) {
	h := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		return wc, nil
	}))

	wc := newTestWorkflowContext(t)
	h.Execute(context.Background(), wc)
	require.Equal(t, int64(1), h.Metrics().TotalExecutions)

	h.ResetMetrics()
	m := h.Metrics()
	assert.Equal(t, int64(0), m.TotalExecutions)
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Equal(t, time.Duration(0), m.AverageTime)
}

func TestPipelineTwoStageSuccess(t *testing.T) {
	intake := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		cat := state.CategoryAccountAccess
		high := state.PriorityHigh
		wc.Category = &cat
		wc.Priority = &high
		return wc, nil
	}))
	resolution := NewHarness("resolution", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		if err := wc.SetProposedResponse("Use the password reset link on the login page.", 0.95); err != nil {
			return nil, err
		}
		return wc, nil
	}))

	wc, err := state.New(uuid.New(), uuid.New(), "I forgot my password", nil)
	require.NoError(t, err)

	out := intake.Execute(context.Background(), wc)
	out = resolution.Execute(context.Background(), out)

	assert.Equal(t, []string{"intake", "resolution"}, out.AgentHistory)
	assert.False(t, out.HasError())
	require.NotNil(t, out.Category)
	assert.Equal(t, state.CategoryAccountAccess, *out.Category)
	assert.True(t, out.IsHighPriority())
	require.NotNil(t, out.ResponseConfidence)
	assert.Equal(t, 0.95, *out.ResponseConfidence)
	assert.True(t, out.HasHighConfidenceResponse())
}

// Pipeline-level behavior: a mid-pipeline failure annotates the context and a
// later stage can still observe and react to it.
func TestPipelineFailurePropagation(t *testing.T) {
	intake := NewHarness("intake", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		cat := state.CategoryTechnical
		wc.Category = &cat
		return wc, nil
	}))
	resolution := NewHarness("resolution", nil, ProcessorFunc(func(_ context.Context, _ *state.WorkflowContext) (*state.WorkflowContext, error) {
		return nil, errors.New("no knowledge found")
	}))
	escalation := NewHarness("escalation", nil, ProcessorFunc(func(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
		if wc.HasError() {
			wc.TriggerEscalation("automated resolution failed", map[string]any{"error": *wc.Error})
		}
		return wc, nil
	}))

	wc := newTestWorkflowContext(t)
	out := intake.Execute(context.Background(), wc)
	out = resolution.Execute(context.Background(), out)
	out = escalation.Execute(context.Background(), out)

	assert.Equal(t, []string{"intake", "resolution (failed)", "escalation"}, out.AgentHistory)
	require.NotNil(t, out.Category, "earlier stage results survive a later failure")
	assert.True(t, out.ShouldEscalate)
	assert.Equal(t, "resolution error: no knowledge found", out.EscalationContext["error"])
}
