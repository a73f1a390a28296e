package llm

import (
	"context"
	"fmt"
	"sync/atomic"

	"supportflow/pkg/llm/retry"
	"supportflow/pkg/logx"
)

// ClientConfig carries the construction-time settings for the unified client.
// Configuration is consumed here once; it is never re-read mid-call.
type ClientConfig struct {
	DefaultTemperature float64
	DefaultMaxTokens   int
	RetryEnabled       bool
	Retry              retry.Config
	LogCalls           bool
}

// DefaultClientConfig returns the standard client settings: 0.7 temperature,
// 4096 max tokens, bounded retry enabled.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   4096,
		RetryEnabled:       true,
		Retry:              retry.DefaultConfig,
		LogCalls:           true,
	}
}

// Client presents one interface regardless of which vendor is configured and
// survives a single vendor outage without failing the caller. It is safe for
// concurrent use across workflow contexts; the usage counters are atomic.
type Client struct {
	primary  Provider
	fallback Provider // nil when fallback is disabled or unavailable
	policy   *retry.Policy
	cfg      ClientConfig
	logger   *logx.Logger

	totalCalls    atomic.Int64
	totalTokens   atomic.Int64
	fallbackCount atomic.Int64
}

// Stats is a point-in-time snapshot of the client's usage counters.
type Stats struct {
	TotalCalls      int64   `json:"total_calls"`
	TotalTokens     int64   `json:"total_tokens"`
	FallbackCount   int64   `json:"fallback_count"`
	FallbackRate    float64 `json:"fallback_rate"`
	PrimaryProvider string  `json:"primary_provider"`
	FallbackEnabled bool    `json:"fallback_enabled"`
}

// NewClient builds a unified client over a primary provider and an optional
// fallback. Pass a nil fallback to disable failover.
func NewClient(primary Provider, fallback Provider, cfg ClientConfig) *Client {
	policyCfg := cfg.Retry
	if policyCfg.MaxAttempts <= 0 {
		policyCfg = retry.DefaultConfig
	}
	if !cfg.RetryEnabled {
		// One attempt, no backoff.
		policyCfg.MaxAttempts = 1
	}

	c := &Client{
		primary:  primary,
		fallback: fallback,
		policy:   retry.NewPolicy(policyCfg, nil),
		cfg:      cfg,
		logger:   logx.NewLogger("llm"),
	}

	if fallback != nil {
		c.logger.Info("LLM client initialized: primary=%s, fallback=%s",
			primary.ProviderName(), fallback.ProviderName())
	} else {
		c.logger.Info("LLM client initialized: primary=%s, no fallback",
			primary.ProviderName())
	}
	return c
}

// Generate produces a completion with bounded retry against the primary
// provider and a single failover attempt against the fallback. The caller
// never learns about intermediate attempt failures except through logs; if
// every attempt fails, the returned error names the primary provider and
// embeds its last error.
func (c *Client) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (*Response, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}

	if opts.SystemPrompt != "" {
		messages = append([]Message{NewSystemMessage(opts.SystemPrompt)}, messages...)
	}

	temperature := c.cfg.DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.cfg.DefaultMaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	var resp *Response
	primaryErr := c.policy.Do(ctx, func(ctx context.Context) error {
		if c.cfg.LogCalls {
			c.logger.Debug("calling %s with %d messages, temp=%v, max_tokens=%d",
				c.primary.ProviderName(), len(messages), temperature, maxTokens)
		}
		r, err := c.primary.Generate(ctx, messages, temperature, maxTokens, opts.Extra)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if primaryErr == nil {
		c.recordSuccess(resp, false)
		return resp, nil
	}

	c.logger.Warn("primary provider %s failed: %v", c.primary.ProviderName(), primaryErr)

	// Primary retries exhausted; fallback gets exactly one attempt.
	if c.fallback != nil {
		c.logger.Info("attempting fallback to %s", c.fallback.ProviderName())
		fbResp, fbErr := c.fallback.Generate(ctx, messages, temperature, maxTokens, opts.Extra)
		if fbErr == nil {
			c.fallbackCount.Add(1)
			c.recordSuccess(fbResp, true)
			return fbResp, nil
		}
		c.logger.Error("fallback provider %s also failed: %v", c.fallback.ProviderName(), fbErr)
	}

	return nil, fmt.Errorf("all LLM providers failed (primary %s): %w",
		c.primary.ProviderName(), primaryErr)
}

// recordSuccess updates the usage counters for one successful call. A failed
// call never touches these, so prior successes are never corrupted.
func (c *Client) recordSuccess(resp *Response, isFallback bool) {
	c.totalCalls.Add(1)
	c.totalTokens.Add(int64(resp.TotalTokens))

	if c.cfg.LogCalls {
		suffix := ""
		if isFallback {
			suffix = " (fallback)"
		}
		c.logger.Info("LLM call successful%s: provider=%s, model=%s, tokens=%d, finish=%s",
			suffix, resp.Provider, resp.Model, resp.TotalTokens, resp.FinishReason)
	}
}

// CountTokens delegates to the primary provider's token estimate.
func (c *Client) CountTokens(text string) int {
	return c.primary.CountTokens(text)
}

// Stats returns the usage counters. FallbackRate is guarded to 0 when there
// have been no calls.
func (c *Client) Stats() Stats {
	calls := c.totalCalls.Load()
	fallbacks := c.fallbackCount.Load()

	rate := 0.0
	if calls > 0 {
		rate = float64(fallbacks) / float64(calls)
	}

	return Stats{
		TotalCalls:      calls,
		TotalTokens:     c.totalTokens.Load(),
		FallbackCount:   fallbacks,
		FallbackRate:    rate,
		PrimaryProvider: c.primary.ProviderName(),
		FallbackEnabled: c.fallback != nil,
	}
}

func (c *Client) String() string {
	fb := "none"
	if c.fallback != nil {
		fb = c.fallback.ProviderName()
	}
	return fmt.Sprintf("Client(primary=%s, fallback=%s)", c.primary.ProviderName(), fb)
}
