// Package llm wraps the generative-AI providers used for summarization,
// classification, and the watchdog judgment. Calls retry on transient
// failures and fall back from the primary (cheap hosted model) to an
// optional secondary (local) provider.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/buildkite/roko"
	"github.com/maruel/genai"
	"github.com/maruel/genai/providers"
)

// Caller issues a single prompt/response exchange.
type Caller interface {
	Generate(ctx context.Context, systemPrompt, input string, maxTokens int) (string, error)
}

// Config selects the providers backing a Client.
type Config struct {
	// Provider is the primary provider name (e.g. "anthropic"). Empty
	// disables LLM calls entirely; callers degrade per their own rules.
	Provider string
	// Model overrides the primary model; empty picks the provider's cheap
	// model.
	Model string
	// FallbackProvider is tried when the primary call fails (e.g.
	// "ollama" for a local model).
	FallbackProvider string
	FallbackModel    string
	// Timeout bounds each call. Defaults to 30s.
	Timeout time.Duration
}

// Client implements Caller over maruel/genai providers.
type Client struct {
	primary  genai.Provider
	fallback genai.Provider
	timeout  time.Duration
}

// New builds a Client from config. Unknown or unconfigured providers yield a
// client whose calls fail fast; callers are expected to handle that via
// their fallback tiers.
func New(ctx context.Context, cfg Config) *Client {
	c := &Client{timeout: cfg.Timeout}
	if c.timeout == 0 {
		c.timeout = 30 * time.Second
	}
	c.primary = makeProvider(ctx, cfg.Provider, cfg.Model)
	c.fallback = makeProvider(ctx, cfg.FallbackProvider, cfg.FallbackModel)
	return c
}

func makeProvider(ctx context.Context, name, model string) genai.Provider {
	if name == "" {
		return nil
	}
	cfg, ok := providers.All[name]
	if !ok || cfg.Factory == nil {
		slog.Warn("unknown LLM provider", "provider", name)
		return nil
	}
	var opts []genai.ProviderOption
	if model != "" {
		opts = append(opts, genai.ProviderOptionModel(model))
	} else {
		opts = append(opts, genai.ModelCheap)
	}
	p, err := cfg.Factory(ctx, opts...)
	if err != nil {
		slog.Warn("failed to create LLM provider", "provider", name, "err", err)
		return nil
	}
	slog.Info("LLM provider ready", "provider", name, "model", p.ModelID())
	return p
}

// Generate runs the prompt against the primary provider with retries, then
// the fallback provider. Returns an error only when every tier failed.
func (c *Client) Generate(ctx context.Context, systemPrompt, input string, maxTokens int) (string, error) {
	if c.primary == nil && c.fallback == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}
	if c.primary != nil {
		out, err := c.generateWith(ctx, c.primary, systemPrompt, input, maxTokens)
		if err == nil {
			return out, nil
		}
		slog.Warn("primary LLM call failed", "err", err)
	}
	if c.fallback != nil {
		out, err := c.generateWith(ctx, c.fallback, systemPrompt, input, maxTokens)
		if err == nil {
			return out, nil
		}
		return "", fmt.Errorf("fallback LLM call failed: %w", err)
	}
	return "", fmt.Errorf("primary LLM call failed and no fallback configured")
}

func (c *Client) generateWith(ctx context.Context, p genai.Provider, systemPrompt, input string, maxTokens int) (string, error) {
	var out string
	err := roko.NewRetrier(
		roko.WithMaxAttempts(3),
		roko.WithStrategy(roko.Constant(2*time.Second)),
	).DoWithContext(ctx, func(r *roko.Retrier) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		res, err := p.GenSync(callCtx,
			genai.Messages{genai.NewTextMessage(input)},
			&genai.GenOptionText{
				SystemPrompt: systemPrompt,
				MaxTokens:    int64(maxTokens),
				Temperature:  0.2,
			},
		)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(res.String())
		return nil
	})
	return out, err
}
