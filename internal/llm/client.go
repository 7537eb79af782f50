// Package llm provides the text-completion service behind the ecosystem
// assistant. It supports Anthropic, OpenAI and OpenAI-compatible endpoints
// (ollama), plus an offline fallback that answers from the built-in
// reference content.
package llm

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxTokens caps answer length when the config leaves it unset.
const DefaultMaxTokens = 150

// ErrUnavailable is returned by Complete when a client has no credentials
// or endpoint to talk to.
var ErrUnavailable = errors.New("llm provider not available")

// ClientConfig configures an LLM client.
type ClientConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama", or "" / "fallback".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider (not used for fallback or ollama).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Used for ollama or custom OpenAI-compatible servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxTokens caps the response length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// FallbackToRules answers from built-in content when the provider is unavailable.
	FallbackToRules bool `json:"fallback_to_rules,omitempty" yaml:"fallback_to_rules,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:        "fallback",
		Timeout:         30 * time.Second,
		MaxTokens:       DefaultMaxTokens,
		FallbackToRules: true,
	}
}

// Client is a text-completion service. Implementations must be safe for
// concurrent use.
type Client interface {
	// Complete sends prompt to the model and returns its reply text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Available reports whether the client is configured and ready.
	Available() bool
}

// Named is implemented by clients that can report which provider served a reply.
type Named interface {
	Name() string
}

// ProviderName returns the provider name for c, or "unknown".
func ProviderName(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

// NewClient builds the client selected by cfg.Provider.
// An unavailable provider is replaced by the FallbackClient when
// cfg.FallbackToRules is set; otherwise the unavailable client is returned
// and its Complete reports ErrUnavailable.
func NewClient(cfg ClientConfig) Client {
	var c Client
	switch cfg.Provider {
	case "anthropic":
		c = NewAnthropicClient(cfg)
	case "openai":
		c = NewOpenAIClient(cfg)
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = ollamaDefaultBaseURL
		}
		c = NewOpenAIClient(cfg)
	default:
		return NewFallbackClient(nil)
	}

	if !c.Available() && cfg.FallbackToRules {
		return NewFallbackClient(nil)
	}
	return c
}

func maxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
