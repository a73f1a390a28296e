// Package factory constructs the unified LLM client from configuration,
// selecting and wiring the configured provider adapters.
package factory

import (
	"fmt"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/anthropic"
	"supportflow/pkg/llm/google"
	"supportflow/pkg/llm/ollama"
	"supportflow/pkg/llm/openai"
	"supportflow/pkg/llm/retry"
	"supportflow/pkg/logx"
)

// newProvider builds one provider adapter by name.
func newProvider(name string, cfg *config.Config) (llm.Provider, error) {
	switch name {
	case config.ProviderClaude:
		if err := cfg.LLM.Claude.Validate(); err != nil {
			return nil, err
		}
		return anthropic.New(cfg.LLM.Claude), nil
	case config.ProviderOpenAI:
		if err := cfg.LLM.OpenAI.Validate(); err != nil {
			return nil, err
		}
		return openai.New(cfg.LLM.OpenAI), nil
	case config.ProviderOllama:
		return ollama.New(cfg.LLM.Ollama), nil
	case config.ProviderGemini:
		return google.New(cfg.LLM.Gemini), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
}

// NewClient builds the unified client: primary provider per the configured
// mode, fallback only when fallback is enabled and the mode is "both". A
// fallback whose construction fails degrades to no-fallback with a warning.
func NewClient(cfg *config.Config) (*llm.Client, error) {
	logger := logx.NewLogger("llm-factory")

	primaryName := cfg.PrimaryProvider()
	primary, err := newProvider(primaryName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary provider %s: %w", primaryName, err)
	}

	var fallback llm.Provider
	if fallbackName := cfg.FallbackProvider(); fallbackName != "" {
		fallback, err = newProvider(fallbackName, cfg)
		if err != nil {
			logger.Warn("fallback provider %s not available: %v", fallbackName, err)
			fallback = nil
		}
	}

	return llm.NewClient(primary, fallback, clientConfigFor(primaryName, cfg)), nil
}

// clientConfigFor derives the client settings for the given primary.
// Generation defaults follow the primary's config section; ollama and gemini
// carry no generation settings, so they keep the built-ins.
func clientConfigFor(primaryName string, cfg *config.Config) llm.ClientConfig {
	clientCfg := llm.DefaultClientConfig()
	clientCfg.RetryEnabled = cfg.LLM.RetryEnabled
	clientCfg.Retry = retry.DefaultConfig
	clientCfg.LogCalls = cfg.Logging.LogLLMCalls

	switch primaryName {
	case config.ProviderClaude:
		clientCfg.DefaultTemperature = cfg.LLM.Claude.Temperature
		clientCfg.DefaultMaxTokens = cfg.LLM.Claude.MaxTokens
	case config.ProviderOpenAI:
		clientCfg.DefaultTemperature = cfg.LLM.OpenAI.Temperature
		clientCfg.DefaultMaxTokens = cfg.LLM.OpenAI.MaxTokens
	}
	return clientCfg
}
