// Package openai provides the OpenAI provider adapter over the chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/llmerrors"
	"supportflow/pkg/utils"
)

// Name is the stable provider identifier used in logs and metrics.
const Name = "openai"

// Provider wraps the official OpenAI client behind the llm.Provider capability.
type Provider struct {
	client  openai.Client
	model   string
	counter *utils.TokenCounter // nil when tokenizer init failed
}

// New creates an OpenAI provider from config.
func New(cfg config.OpenAIConfig) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.TimeoutSec > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSec)*time.Second))
	}

	// Tokenizer failure degrades to the char/4 estimate.
	counter, err := utils.NewTokenCounter(cfg.Model)
	if err != nil {
		counter = nil
	}

	return &Provider{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		counter: counter,
	}
}

// ProviderName implements llm.Provider.
func (p *Provider) ProviderName() string {
	return Name
}

func convertMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}
	}
	return out, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int, _ map[string]any) (*llm.Response, error) {
	converted, err := convertMessages(messages)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    converted,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from OpenAI API")
	}

	choice := &resp.Choices[0]
	promptTokens := int(resp.Usage.PromptTokens)
	completionTokens := int(resp.Usage.CompletionTokens)

	return &llm.Response{
		Content:          choice.Message.Content,
		Model:            resp.Model,
		Provider:         Name,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		FinishReason:     string(choice.FinishReason),
		Metadata: map[string]any{
			"id":      resp.ID,
			"created": resp.Created,
		},
	}, nil
}

// CountTokens implements llm.Provider. Uses the tiktoken encoding when
// available, otherwise the char/4 estimate.
func (p *Provider) CountTokens(text string) int {
	if p.counter != nil {
		return p.counter.CountTokens(text)
	}
	return llm.EstimateTokens(text)
}

func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}
	return llmerrors.Classify(err)
}
