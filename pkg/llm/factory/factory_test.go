package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportflow/pkg/config"
	"supportflow/pkg/llm"
)

func TestNewProviderByName(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Claude.APIKey = "sk-ant-test"
	cfg.LLM.OpenAI.APIKey = "sk-test"

	tests := []struct {
		name string
		want string
	}{
		{config.ProviderClaude, "claude"},
		{config.ProviderOpenAI, "openai"},
		{config.ProviderOllama, "ollama"},
		{config.ProviderGemini, "gemini"},
	}
	for _, tt := range tests {
		p, err := newProvider(tt.name, cfg)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, p.ProviderName())
	}

	_, err := newProvider("mistral", cfg)
	assert.Error(t, err)
}

func TestNewProviderValidatesConfig(t *testing.T) {
	cfg := config.Default()
	// No API keys set.
	_, err := newProvider(config.ProviderClaude, cfg)
	assert.Error(t, err)
	_, err = newProvider(config.ProviderOpenAI, cfg)
	assert.Error(t, err)
}

func TestClientConfigForPrimary(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Claude.Temperature = 0.3
	cfg.LLM.Claude.MaxTokens = 1024
	cfg.LLM.OpenAI.Temperature = 0.5
	cfg.LLM.OpenAI.MaxTokens = 2048
	cfg.LLM.RetryEnabled = false
	cfg.Logging.LogLLMCalls = false

	claude := clientConfigFor(config.ProviderClaude, cfg)
	assert.Equal(t, 0.3, claude.DefaultTemperature)
	assert.Equal(t, 1024, claude.DefaultMaxTokens)
	assert.False(t, claude.RetryEnabled)
	assert.False(t, claude.LogCalls)

	openAI := clientConfigFor(config.ProviderOpenAI, cfg)
	assert.Equal(t, 0.5, openAI.DefaultTemperature)
	assert.Equal(t, 2048, openAI.DefaultMaxTokens)

	// Ollama and gemini carry no generation settings; they keep the
	// client's built-in defaults rather than inheriting Claude's.
	builtin := llm.DefaultClientConfig()
	for _, name := range []string{config.ProviderOllama, config.ProviderGemini} {
		got := clientConfigFor(name, cfg)
		assert.Equal(t, builtin.DefaultTemperature, got.DefaultTemperature, name)
		assert.Equal(t, builtin.DefaultMaxTokens, got.DefaultMaxTokens, name)
	}
}

func TestNewClientWithFallback(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Claude.APIKey = "sk-ant-test"
	cfg.LLM.OpenAI.APIKey = "sk-test"

	client, err := NewClient(cfg)
	require.NoError(t, err)

	stats := client.Stats()
	assert.Equal(t, "claude", stats.PrimaryProvider)
	assert.True(t, stats.FallbackEnabled)
}

func TestNewClientFallbackDegrades(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Claude.APIKey = "sk-ant-test"
	// OpenAI key missing: fallback construction fails and is dropped.

	client, err := NewClient(cfg)
	require.NoError(t, err)

	stats := client.Stats()
	assert.Equal(t, "claude", stats.PrimaryProvider)
	assert.False(t, stats.FallbackEnabled)
}
