// File: internal/services/ai/config.go
package ai

import (
    "fmt"
    "time"
)

const (
    ProviderGemini = "gemini"
    ProviderOpenAI = "openai"

    DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
    DefaultModel         = "gemini-2.0-flash"
)

type Config struct {
    Provider string
    APIKey   string
    BaseURL  string
    Model    string

    // HTTP client timeout. Callers normally set a tighter deadline on ctx.
    Timeout time.Duration

    // Transient failures (network, 429, 5xx) are retried this many times.
    MaxRetries int
    RetryDelay time.Duration
}

func (c *Config) Validate() error {
    switch c.Provider {
    case ProviderGemini, ProviderOpenAI:
    default:
        return fmt.Errorf("unknown AI provider %q", c.Provider)
    }
    if c.Model == "" {
        return fmt.Errorf("AI_MODEL is required")
    }
    if c.Timeout <= 0 {
        return fmt.Errorf("timeout must be positive")
    }
    if c.MaxRetries < 0 || c.MaxRetries > 5 {
        return fmt.Errorf("max_retries must be between 0 and 5")
    }
    return nil
}

func DefaultConfig() *Config {
    return &Config{
        Provider:   ProviderGemini,
        Model:      DefaultModel,
        Timeout:    2 * time.Minute,
        MaxRetries: 1,
        RetryDelay: 500 * time.Millisecond,
    }
}
