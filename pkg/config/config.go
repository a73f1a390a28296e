// Package config provides configuration loading and validation for the
// support workflow core. Settings come from an optional YAML file with
// environment variable overrides, and are consumed once at construction
// time - never re-read mid-call.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider mode constants. ProviderBoth selects Claude as primary with
// OpenAI as fallback unless LLM.Primary overrides the precedence.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderBoth   = "both"
)

// Environment constants.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default model identifiers.
const (
	DefaultClaudeModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel = "gpt-4-turbo-preview"
	DefaultOllamaModel = "llama3.1"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOllamaHost  = "http://localhost:11434"
)

// ClaudeConfig holds Anthropic Claude settings.
type ClaudeConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// OpenAIConfig holds OpenAI settings.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// OllamaConfig holds settings for the local Ollama runtime.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LLMConfig selects providers and failure-handling behavior.
type LLMConfig struct {
	// Provider is the mode: claude, openai, ollama, gemini, or both.
	Provider string `yaml:"provider"`
	// Primary optionally reverses the precedence in "both" mode.
	Primary         string       `yaml:"primary"`
	FallbackEnabled bool         `yaml:"fallback_enabled"`
	RetryEnabled    bool         `yaml:"retry_enabled"`
	Claude          ClaudeConfig `yaml:"claude"`
	OpenAI          OpenAIConfig `yaml:"openai"`
	Ollama          OllamaConfig `yaml:"ollama"`
	Gemini          GeminiConfig `yaml:"gemini"`
}

// LoggingConfig controls observability of LLM calls.
type LoggingConfig struct {
	LogLLMCalls bool `yaml:"log_llm_calls"`
	Debug       bool `yaml:"debug"`
}

// Config is the root configuration for the support workflow core.
type Config struct {
	Environment string        `yaml:"environment"`
	LLM         LLMConfig     `yaml:"llm"`
	Logging     LoggingConfig `yaml:"logging"`
}

// Default returns the built-in configuration: Claude primary with fallback
// and retry enabled.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		LLM: LLMConfig{
			Provider:        ProviderBoth,
			FallbackEnabled: true,
			RetryEnabled:    true,
			Claude: ClaudeConfig{
				Model:       DefaultClaudeModel,
				MaxTokens:   4096,
				Temperature: 0.7,
				TimeoutSec:  60,
			},
			OpenAI: OpenAIConfig{
				Model:       DefaultOpenAIModel,
				MaxTokens:   4096,
				Temperature: 0.7,
				TimeoutSec:  60,
			},
			Ollama: OllamaConfig{
				Host:  DefaultOllamaHost,
				Model: DefaultOllamaModel,
			},
			Gemini: GeminiConfig{
				Model: DefaultGeminiModel,
			},
		},
		Logging: LoggingConfig{
			LogLLMCalls: true,
		},
	}
}

// Load reads configuration from the YAML file at path (missing file means
// defaults), then applies environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults plus env overrides.
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SUPPORTFLOW_* environment variables onto the config.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.ParseBool(v); err == nil {
				*dst = parsed
			}
		}
	}

	setString("SUPPORTFLOW_ENVIRONMENT", &c.Environment)
	setString("SUPPORTFLOW_LLM_PROVIDER", &c.LLM.Provider)
	setString("SUPPORTFLOW_LLM_PRIMARY", &c.LLM.Primary)
	setBool("SUPPORTFLOW_LLM_FALLBACK_ENABLED", &c.LLM.FallbackEnabled)
	setBool("SUPPORTFLOW_LLM_RETRY_ENABLED", &c.LLM.RetryEnabled)

	setString("SUPPORTFLOW_CLAUDE_API_KEY", &c.LLM.Claude.APIKey)
	setString("SUPPORTFLOW_CLAUDE_MODEL", &c.LLM.Claude.Model)
	setString("SUPPORTFLOW_OPENAI_API_KEY", &c.LLM.OpenAI.APIKey)
	setString("SUPPORTFLOW_OPENAI_MODEL", &c.LLM.OpenAI.Model)
	setString("SUPPORTFLOW_OLLAMA_HOST", &c.LLM.Ollama.Host)
	setString("SUPPORTFLOW_OLLAMA_MODEL", &c.LLM.Ollama.Model)
	setString("SUPPORTFLOW_GEMINI_API_KEY", &c.LLM.Gemini.APIKey)
	setString("SUPPORTFLOW_GEMINI_MODEL", &c.LLM.Gemini.Model)

	// Fall back to the conventional vendor variables when the prefixed
	// forms are absent.
	if c.LLM.Claude.APIKey == "" {
		c.LLM.Claude.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.LLM.OpenAI.APIKey == "" {
		c.LLM.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.Gemini.APIKey == "" {
		c.LLM.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	setBool("SUPPORTFLOW_LOG_LLM_CALLS", &c.Logging.LogLLMCalls)
	setBool("SUPPORTFLOW_DEBUG", &c.Logging.Debug)
}

// placeholders that indicate an API key was never set.
//
//nolint:gochecknoglobals // static validation data
var keyPlaceholders = []string{"xxxxx", "your-key", "placeholder", "change-me"}

func validateAPIKey(name, key, requiredPrefix string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%s API key cannot be empty", name)
	}
	lower := strings.ToLower(key)
	for _, p := range keyPlaceholders {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%s API key appears to be a placeholder", name)
		}
	}
	if requiredPrefix != "" && !strings.HasPrefix(key, requiredPrefix) {
		return fmt.Errorf("invalid %s API key format (should start with %q)", name, requiredPrefix)
	}
	return nil
}

func (c *ClaudeConfig) Validate() error {
	if err := validateAPIKey("claude", c.APIKey, "sk-ant-"); err != nil {
		return err
	}
	return validateGeneration("claude", c.MaxTokens, c.Temperature, c.TimeoutSec)
}

func (c *OpenAIConfig) Validate() error {
	if err := validateAPIKey("openai", c.APIKey, "sk-"); err != nil {
		return err
	}
	return validateGeneration("openai", c.MaxTokens, c.Temperature, c.TimeoutSec)
}

func validateGeneration(name string, maxTokens int, temperature float64, timeoutSec int) error {
	if maxTokens < 1 {
		return fmt.Errorf("%s max_tokens must be at least 1", name)
	}
	if temperature < 0.0 || temperature > 1.0 {
		return fmt.Errorf("%s temperature must be between 0.0 and 1.0", name)
	}
	if timeoutSec < 1 {
		return fmt.Errorf("%s timeout_sec must be at least 1", name)
	}
	return nil
}

// Validate checks the configuration, validating only the providers the
// selected mode actually uses.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("unknown environment: %q", c.Environment)
	}

	switch c.LLM.Provider {
	case ProviderClaude:
		return c.LLM.Claude.Validate()
	case ProviderOpenAI:
		return c.LLM.OpenAI.Validate()
	case ProviderOllama:
		if c.LLM.Ollama.Host == "" || c.LLM.Ollama.Model == "" {
			return fmt.Errorf("ollama host and model must be set")
		}
		return nil
	case ProviderGemini:
		if err := validateAPIKey("gemini", c.LLM.Gemini.APIKey, ""); err != nil {
			return err
		}
		return nil
	case ProviderBoth:
		if err := c.LLM.Claude.Validate(); err != nil {
			return err
		}
		return c.LLM.OpenAI.Validate()
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.LLM.Provider)
	}
}

// PrimaryProvider resolves which provider is primary. In "both" mode the
// default precedence is Claude primary, reversible via LLM.Primary.
func (c *Config) PrimaryProvider() string {
	if c.LLM.Provider != ProviderBoth {
		return c.LLM.Provider
	}
	if c.LLM.Primary == ProviderOpenAI {
		return ProviderOpenAI
	}
	return ProviderClaude
}

// FallbackProvider resolves the fallback provider name, or "" when fallback
// is disabled or the mode is single-provider.
func (c *Config) FallbackProvider() string {
	if !c.LLM.FallbackEnabled || c.LLM.Provider != ProviderBoth {
		return ""
	}
	if c.PrimaryProvider() == ProviderClaude {
		return ProviderOpenAI
	}
	return ProviderClaude
}
