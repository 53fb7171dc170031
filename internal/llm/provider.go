// Package llm turns free-form user messages into structured intents and
// structured tool outputs into conversational text. Providers are swappable;
// all model output that must be machine-readable goes through the tolerant
// JSON extraction in jsonfix.go before it is trusted.
package llm

import (
	"context"
	"fmt"
	"strings"

	"llm-trading-agent/internal/llm/noop"
	"llm-trading-agent/internal/llm/openai"
	"llm-trading-agent/internal/store"
)

// Provider is a chat-completion backend. Complete sends one system/user
// exchange and returns the raw assistant text.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds the provider named in config. NOOP is the deterministic offline
// backend used in tests and dry runs.
func New(cfg *store.Config) (Provider, error) {
	switch strings.ToUpper(cfg.LLM.Provider) {
	case "OPENAI":
		return openai.New(cfg), nil
	case "NOOP":
		return noop.New(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
