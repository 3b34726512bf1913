// File: internal/services/ai/gemini_provider.go
package ai

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
)

const maxErrorBody = 4 << 10

type geminiPart struct {
    Text string `json:"text"`
}

type geminiContent struct {
    Role  string       `json:"role,omitempty"`
    Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
    Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
    Candidates []struct {
        Content *geminiContent `json:"content"`
    } `json:"candidates"`
}

// GeminiProvider calls the generateContent REST endpoint.
type GeminiProvider struct {
    config *Config
    client *http.Client
}

// NewGeminiProvider uses client when non-nil, otherwise a client bounded by
// config.Timeout.
func NewGeminiProvider(config *Config, client *http.Client) *GeminiProvider {
    if client == nil {
        client = &http.Client{Timeout: config.Timeout}
    }
    return &GeminiProvider{config: config, client: client}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) endpoint() string {
    base := p.config.BaseURL
    if base == "" {
        base = DefaultGeminiBaseURL
    }
    return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
        strings.TrimRight(base, "/"), url.PathEscape(p.config.Model), url.QueryEscape(p.config.APIKey))
}

func (p *GeminiProvider) Generate(ctx context.Context, history []Turn) (string, error) {
    req := geminiRequest{Contents: make([]geminiContent, 0, len(history))}
    for _, t := range history {
        req.Contents = append(req.Contents, geminiContent{
            Role:  t.Role,
            Parts: []geminiPart{{Text: t.Text}},
        })
    }

    body, err := json.Marshal(req)
    if err != nil {
        return "", &AIError{Type: ErrTypeProvider, Operation: "generate", Model: p.config.Model, Message: "encode request", Cause: err}
    }

    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
    if err != nil {
        return "", &AIError{Type: ErrTypeConfig, Operation: "generate", Model: p.config.Model, Message: "build request", Cause: err}
    }
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := p.client.Do(httpReq)
    if err != nil {
        return "", &AIError{Type: ErrTypeNetwork, Operation: "generate", Model: p.config.Model, Message: "request failed", Cause: err}
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
        return "", &AIError{
            Type:      ErrTypeProvider,
            Code:      resp.StatusCode,
            Operation: "generate",
            Model:     p.config.Model,
            Message:   strings.TrimSpace(string(snippet)),
        }
    }

    var out geminiResponse
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return "", &AIError{Type: ErrTypeDecode, Operation: "generate", Model: p.config.Model, Message: "malformed response", Cause: err}
    }

    if len(out.Candidates) == 0 || out.Candidates[0].Content == nil || len(out.Candidates[0].Content.Parts) == 0 {
        return "", nil
    }
    return out.Candidates[0].Content.Parts[0].Text, nil
}
