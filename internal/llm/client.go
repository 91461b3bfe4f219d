package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// ChatStream sends a streaming chat request. If callback is non-nil,
	// visible text tokens are streamed to it as they arrive.
	ChatStream(ctx context.Context, model string, messages []Message, tools []map[string]any, callback StreamCallback) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// ProviderConfig identifies a caller's model provider. It mirrors the
// per-user AI settings: which provider family, which model, the API
// credential, and an optional custom endpoint for self-hosted gateways.
type ProviderConfig struct {
	Provider string // "claude", "openai", "local", "custom"
	Model    string
	APIKey   string
	BaseURL  string // for local/custom providers
}

// Configured reports whether the config names a usable provider.
func (c ProviderConfig) Configured() bool {
	return c.Provider != "" && c.Model != ""
}

// New builds a Client for the given provider configuration.
func New(cfg ProviderConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case "claude", "anthropic":
		return NewAnthropicClient(cfg.APIKey, logger), nil
	case "openai", "local", "custom":
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
