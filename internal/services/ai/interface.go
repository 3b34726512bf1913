// File: internal/services/ai/interface.go
package ai

import (
    "context"
    "strings"

    "github.com/iyunix/go-chatreveal/internal/domain"
)

// Backend role names for a conversation turn.
const (
    TurnRoleUser  = "user"
    TurnRoleModel = "model"
)

// Turn is one message of conversation history in backend terms.
type Turn struct {
    Role string
    Text string
}

// Generator produces a reply for a conversation. A nil error with an empty
// string means the backend answered without a reply at the expected place.
type Generator interface {
    Generate(ctx context.Context, history []Turn) (string, error)
    Name() string
}

// FromMessages maps stored history onto backend turns: user -> "user",
// bot -> "model".
func FromMessages(messages []domain.Message) []Turn {
    turns := make([]Turn, 0, len(messages))
    for _, m := range messages {
        role := TurnRoleUser
        if m.Role == domain.RoleBot {
            role = TurnRoleModel
        }
        turns = append(turns, Turn{Role: role, Text: m.Text})
    }
    return turns
}

// NewGenerator builds the configured backend. Without an API key it returns
// (nil, nil) and callers run in fallback-only mode.
func NewGenerator(cfg *Config) (Generator, error) {
    if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
        return nil, nil
    }
    if err := cfg.Validate(); err != nil {
        return nil, NewConfigError(err.Error())
    }
    var g Generator
    switch cfg.Provider {
    case ProviderOpenAI:
        g = NewOpenAIProvider(cfg)
    default:
        g = NewGeminiProvider(cfg, nil)
    }
    if cfg.MaxRetries > 0 {
        g = WithRetry(g, cfg.MaxRetries, cfg.RetryDelay)
    }
    return g, nil
}
