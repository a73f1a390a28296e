// Package ollama provides a provider adapter for the Ollama local LLM
// runtime, useful for development without vendor credentials.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/llmerrors"
)

// Name is the stable provider identifier used in logs and metrics.
const Name = "ollama"

// Provider wraps the Ollama API client behind the llm.Provider capability.
type Provider struct {
	client *api.Client
	model  string
}

// New creates an Ollama provider. An invalid host URL falls back to the
// default local server.
func New(cfg config.OllamaConfig) *Provider {
	parsedURL, err := url.Parse(cfg.Host)
	if err != nil {
		parsedURL, _ = url.Parse(config.DefaultOllamaHost)
	}
	return &Provider{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  cfg.Model,
	}
}

// ProviderName implements llm.Provider.
func (p *Provider) ProviderName() string {
	return Name
}

func convertMessages(messages []llm.Message) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}
	out := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
			out = append(out, api.Message{Role: string(msg.Role), Content: msg.Content})
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

	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: converted,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var response api.ChatResponse
	err = p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return nil, llmerrors.Classify(err)
	}
	if response.Message.Content == "" {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Ollama")
	}

	promptTokens := response.Metrics.PromptEvalCount
	completionTokens := response.Metrics.EvalCount

	return &llm.Response{
		Content:          response.Message.Content,
		Model:            p.model,
		Provider:         Name,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		FinishReason:     stopReason(&response),
		Metadata: map[string]any{
			"total_duration": response.Metrics.TotalDuration,
		},
	}, nil
}

// CountTokens implements llm.Provider with the shared char/4 estimate.
func (p *Provider) CountTokens(text string) int {
	return llm.EstimateTokens(text)
}

// stopReason converts Ollama's done_reason to the normalized finish tag.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}
