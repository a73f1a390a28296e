// Package llm provides the provider-agnostic interface for large-language-model
// interactions: normalized message/response types, the Provider capability two
// vendor adapters implement, and a unified client with retry and failover.
package llm

import "context"

// Role represents the role of a message in a conversation.
type Role string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant Role = "assistant"
)

// Message represents a message in a completion request.
type Message struct {
	Role    Role
	Content string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Response is the normalized completion result every provider returns.
// TotalTokens always equals PromptTokens + CompletionTokens.
type Response struct {
	Content          string
	Model            string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	FinishReason     string
	Metadata         map[string]any
}

// GenerateOptions carries per-call generation parameters. Nil pointer fields
// mean "use the configured default".
type GenerateOptions struct {
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
	Extra        map[string]any
}

// Float64 returns a pointer to v, for use in GenerateOptions.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for use in GenerateOptions.
func Int(v int) *int { return &v }

// Provider is the capability every vendor adapter implements. Adapters send
// the conversation to their vendor, normalize the result, and surface any
// failure (timeout, auth, rate limit, malformed response) as a single
// classified error; no partial decoding leaks past this boundary.
type Provider interface {
	// ProviderName returns the stable identifier used in logs and metrics.
	ProviderName() string

	// Generate sends the conversation and returns a normalized response.
	// A message with role system, if present, is transmitted through the
	// vendor's system-prompt mechanism rather than as a conversation turn.
	Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int, extra map[string]any) (*Response, error)

	// CountTokens returns a fast, approximate token estimate for text.
	// Advisory only, used for local budgeting, not billing.
	CountTokens(text string) int
}

// EstimateTokens is the shared fallback token estimate: roughly four
// characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}
