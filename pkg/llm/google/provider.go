// Package google provides the Google Gemini provider adapter.
package google

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/llmerrors"
)

// Name is the stable provider identifier used in logs and metrics.
const Name = "gemini"

// Provider wraps the Google GenAI client behind the llm.Provider capability.
type Provider struct {
	mu     sync.Mutex
	client *genai.Client // created on first use, guarded by mu
	apiKey string
	model  string
}

// New creates a Gemini provider. Client creation needs a context, so it is
// deferred to the first Generate call.
func New(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

// ProviderName implements llm.Provider.
func (p *Provider) ProviderName() string {
	return Name
}

// convertMessages converts messages to Gemini Content, extracting system
// messages into the system instruction.
func convertMessages(messages []llm.Message) (contents []*genai.Content, systemInstruction string, err error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("invalid role %q at index %d", msg.Role, i)
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("must have at least one non-system message")
	}
	return contents, systemInstruction, nil
}

// ensureClient creates the genai client on first use. A failed creation is
// not cached, so a later call can retry. Safe for concurrent callers.
func (p *Provider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "failed to create Gemini client")
		}
		p.client = client
	}
	return p.client, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int, _ map[string]any) (*llm.Response, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, systemInstruction, err := convertMessages(messages)
	if err != nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	temp := float32(temperature)
	//nolint:gosec // max tokens validated at config load, overflow not reachable
	maxOut := int32(maxTokens)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxOut,
	}
	if systemInstruction != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, p.model, contents, genCfg)
	if err != nil {
		return nil, llmerrors.Classify(err)
	}
	if result == nil || result.Text() == "" {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty response from Gemini API")
	}

	var promptTokens, completionTokens int
	if result.UsageMetadata != nil {
		promptTokens = int(result.UsageMetadata.PromptTokenCount)
		completionTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	finish := "end_turn"
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
		finish = string(result.Candidates[0].FinishReason)
	}

	return &llm.Response{
		Content:          result.Text(),
		Model:            p.model,
		Provider:         Name,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		FinishReason:     finish,
		Metadata: map[string]any{
			"response_id": result.ResponseID,
		},
	}, nil
}

// CountTokens implements llm.Provider with the shared char/4 estimate.
func (p *Provider) CountTokens(text string) int {
	return llm.EstimateTokens(text)
}
