package anthropic

import (
	"context"
	"testing"

	"supportflow/pkg/llm"
	"supportflow/pkg/llm/llmerrors"
)

func TestSplitSystem(t *testing.T) {
	system, turns, err := splitSystem([]llm.Message{
		llm.NewSystemMessage("You are a support agent."),
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
		llm.NewUserMessage("my order is late"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "You are a support agent." {
		t.Errorf("unexpected system prompt: %q", system)
	}
	if len(turns) != 3 {
		t.Errorf("expected 3 conversation turns, got %d", len(turns))
	}
	if string(turns[0].Role) != "user" {
		t.Errorf("expected first turn role user, got %q", turns[0].Role)
	}
}

func TestSplitSystemJoinsMultipleSystemMessages(t *testing.T) {
	system, _, err := splitSystem([]llm.Message{
		llm.NewSystemMessage("first"),
		llm.NewSystemMessage("second"),
		llm.NewUserMessage("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "first\n\nsecond" {
		t.Errorf("unexpected joined system prompt: %q", system)
	}
}

func TestSplitSystemRejectsEmpty(t *testing.T) {
	if _, _, err := splitSystem(nil); err == nil {
		t.Error("empty message list must be rejected")
	}

	// System-only conversations have no turns to send.
	if _, _, err := splitSystem([]llm.Message{llm.NewSystemMessage("only system")}); err == nil {
		t.Error("system-only message list must be rejected")
	}
}

func TestSplitSystemRejectsInvalidRole(t *testing.T) {
	_, _, err := splitSystem([]llm.Message{{Role: "tool", Content: "x"}})
	if err == nil {
		t.Error("unknown role must be rejected")
	}
}

func TestClassifyErrorContextSignals(t *testing.T) {
	if got := classifyError(context.DeadlineExceeded); got.Type != llmerrors.ErrorTypeTransient {
		t.Errorf("deadline exceeded should classify transient, got %s", got.Type)
	}
	if got := classifyError(context.Canceled); got.Type != llmerrors.ErrorTypeTransient {
		t.Errorf("cancellation should classify transient, got %s", got.Type)
	}
}
