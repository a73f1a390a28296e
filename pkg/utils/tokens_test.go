package utils

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	if got := tc.CountTokens(""); got != 0 {
		t.Errorf("empty text should count 0 tokens, got %d", got)
	}

	count := tc.CountTokens("Hello, how can I help you today?")
	if count <= 0 || count > 20 {
		t.Errorf("implausible token count %d for a short sentence", count)
	}
}

func TestCountTokensNilCodecFallback(t *testing.T) {
	tc := &TokenCounter{}
	text := strings.Repeat("a", 40)
	if got := tc.CountTokens(text); got != 10 {
		t.Errorf("expected char/4 fallback of 10, got %d", got)
	}
}

func TestValidateTokenLimit(t *testing.T) {
	tc, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	if !tc.ValidateTokenLimit("short", 100) {
		t.Error("short text should fit a generous limit")
	}
	long := strings.Repeat("support ticket backlog ", 200)
	if tc.ValidateTokenLimit(long, 10) {
		t.Error("long text should not fit a tiny limit")
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	tc, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	short := "fits as is"
	if got := tc.TruncateToTokenLimit(short, 100); got != short {
		t.Errorf("text under the limit must be unchanged, got %q", got)
	}

	long := strings.Repeat("customer escalation detail ", 300)
	truncated := tc.TruncateToTokenLimit(long, 50)
	if len(truncated) >= len(long) {
		t.Error("over-limit text must shrink")
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("truncated text must carry an ellipsis")
	}
	if !tc.ValidateTokenLimit(truncated, 60) {
		t.Errorf("truncated text should land near the limit, counted %d", tc.CountTokens(truncated))
	}
}
