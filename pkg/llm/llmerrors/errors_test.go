package llmerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrorTypeRateLimit, "rate_limit"},
		{ErrorTypeTransient, "transient"},
		{ErrorTypeEmptyResponse, "empty_response"},
		{ErrorTypeAuth, "auth"},
		{ErrorTypeBadPrompt, "bad_prompt"},
		{ErrorTypeUnknown, "unknown"},
		{ErrorType(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", tt.et, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse, ErrorTypeUnknown}
	for _, et := range retryable {
		if !(&Error{Type: et}).IsRetryable() {
			t.Errorf("%s should be retryable", et)
		}
	}
	nonRetryable := []ErrorType{ErrorTypeAuth, ErrorTypeBadPrompt}
	for _, et := range nonRetryable {
		if (&Error{Type: et}).IsRetryable() {
			t.Errorf("%s should not be retryable", et)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewErrorWithCause(ErrorTypeTransient, cause, "wrapped")
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var llmErr *Error
	if !errors.As(wrapped, &llmErr) {
		t.Fatal("expected errors.As to find the classified error")
	}
	if llmErr.Type != ErrorTypeTransient {
		t.Errorf("expected transient, got %s", llmErr.Type)
	}
}

func TestIsAndTypeOf(t *testing.T) {
	err := NewError(ErrorTypeRateLimit, "slow down")
	if !Is(err, ErrorTypeRateLimit) {
		t.Error("Is should match the error type")
	}
	if Is(err, ErrorTypeAuth) {
		t.Error("Is should not match a different type")
	}
	if Is(errors.New("plain"), ErrorTypeRateLimit) {
		t.Error("Is should not match unclassified errors")
	}
	if got := TypeOf(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %s, want unknown", got)
	}
}

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		errStr string
		want   ErrorType
	}{
		{"request failed with status: 401", ErrorTypeAuth},
		{"request failed with status: 403", ErrorTypeAuth},
		{"request failed with status: 429", ErrorTypeRateLimit},
		{"request failed with status: 400", ErrorTypeBadPrompt},
		{"request failed with status: 500", ErrorTypeTransient},
		{"request failed with status: 503", ErrorTypeTransient},
	}
	for _, tt := range tests {
		got := Classify(errors.New(tt.errStr))
		if got.Type != tt.want {
			t.Errorf("Classify(%q).Type = %s, want %s", tt.errStr, got.Type, tt.want)
		}
	}
}

func TestClassifyTextPatterns(t *testing.T) {
	tests := []struct {
		errStr string
		want   ErrorType
	}{
		{"dial tcp: connection refused", ErrorTypeTransient},
		{"unexpected EOF", ErrorTypeTransient},
		{"request timeout exceeded", ErrorTypeTransient},
		{"quota exceeded for project", ErrorTypeRateLimit},
		{"model overloaded, try again later", ErrorTypeRateLimit},
		{"invalid api key provided", ErrorTypeAuth},
		{"prompt too large for model", ErrorTypeBadPrompt},
		{"something inexplicable happened", ErrorTypeUnknown},
	}
	for _, tt := range tests {
		got := Classify(errors.New(tt.errStr))
		if got.Type != tt.want {
			t.Errorf("Classify(%q).Type = %s, want %s", tt.errStr, got.Type, tt.want)
		}
	}
}

func TestClassifyPassThrough(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}

	original := NewError(ErrorTypeEmptyResponse, "no content")
	if got := Classify(original); got != original {
		t.Error("already-classified errors pass through unchanged")
	}
}

func TestExtractStatusCode(t *testing.T) {
	tests := []struct {
		errStr string
		want   int
	}{
		{"status code: 429 too many requests", 429},
		{"HTTP 503 service unavailable", 503},
		{"error code 401", 401},
		{"no code in here", 0},
	}
	for _, tt := range tests {
		if got := ExtractStatusCode(tt.errStr); got != tt.want {
			t.Errorf("ExtractStatusCode(%q) = %d, want %d", tt.errStr, got, tt.want)
		}
	}
}
