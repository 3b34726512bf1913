// File: internal/services/ai/openai_provider.go
package ai

import (
    "context"
    "errors"

    openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
    config *Config
    client *openai.Client
}

func NewOpenAIProvider(config *Config) *OpenAIProvider {
    clientConfig := openai.DefaultConfig(config.APIKey)
    if config.BaseURL != "" {
        clientConfig.BaseURL = config.BaseURL
    }
    return &OpenAIProvider{
        config: config,
        client: openai.NewClientWithConfig(clientConfig),
    }
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) Generate(ctx context.Context, history []Turn) (string, error) {
    messages := make([]openai.ChatCompletionMessage, 0, len(history))
    for _, t := range history {
        role := openai.ChatMessageRoleUser
        if t.Role == TurnRoleModel {
            role = openai.ChatMessageRoleAssistant
        }
        messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
    }

    resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model:    p.config.Model,
        Messages: messages,
    })
    if err != nil {
        aiErr := NewProviderError("completion", "failed to create completion", err)
        aiErr.Model = p.config.Model
        var apiErr *openai.APIError
        if errors.As(err, &apiErr) {
            aiErr.Code = apiErr.HTTPStatusCode
        }
        return "", aiErr
    }

    if len(resp.Choices) == 0 {
        return "", nil
    }
    return resp.Choices[0].Message.Content, nil
}
