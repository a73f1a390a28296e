// Package anthropic provides the Anthropic Claude provider adapter.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/llmerrors"
)

// Name is the stable provider identifier used in logs and metrics.
const Name = "claude"

// Provider wraps the Anthropic API client behind the llm.Provider capability.
type Provider struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude provider from config. The vendor call timeout is
// applied here; the core imposes no additional deadline.
func New(cfg config.ClaudeConfig) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.TimeoutSec > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSec)*time.Second))
	}
	return &Provider{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(cfg.Model),
	}
}

// ProviderName implements llm.Provider.
func (p *Provider) ProviderName() string {
	return Name
}

// splitSystem extracts system messages to the top-level system parameter the
// Anthropic API expects; everything else stays a conversation turn.
func splitSystem(messages []llm.Message) (systemPrompt string, turns []anthropic.MessageParam, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleUser, llm.RoleAssistant:
			turns = append(turns, anthropic.MessageParam{
				Role:    anthropic.MessageParamRole(msg.Role),
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})
		default:
			return "", nil, fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}
	}

	if len(turns) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	return strings.Join(systemParts, "\n\n"), turns, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int, _ map[string]any) (*llm.Response, error) {
	systemPrompt, turns, err := splitSystem(messages)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	params := anthropic.MessageNewParams{
		Model:       p.model,
		Messages:    turns,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	promptTokens := int(resp.Usage.InputTokens)
	completionTokens := int(resp.Usage.OutputTokens)

	return &llm.Response{
		Content:          text.String(),
		Model:            string(resp.Model),
		Provider:         Name,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		FinishReason:     string(resp.StopReason),
		Metadata: map[string]any{
			"id":   resp.ID,
			"type": string(resp.Type),
		},
	}, nil
}

// CountTokens implements llm.Provider. Claude averages roughly four
// characters per token.
func (p *Provider) CountTokens(text string) int {
	return llm.EstimateTokens(text)
}

// classifyError maps Anthropic SDK errors to classified error types.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}
	return llmerrors.Classify(err)
}
