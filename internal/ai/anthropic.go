package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider calls the Messages API.
type AnthropicProvider struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func NewAnthropicProvider(apiKey, model string, maxTokens int, timeout time.Duration) *AnthropicProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &AnthropicProvider{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    anthropicURL,
		APIKey:     apiKey,
		Model:      model,
		MaxTokens:  maxTokens,
	}
}

func (p *AnthropicProvider) Generate(ctx context.Context, system string, history []Message) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("anthropic api key missing")
	}
	// The Messages API has no system role inside messages.
	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("anthropic: no messages")
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
		System:    system,
		Messages:  msgs,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic http %d: %s", resp.StatusCode, truncate(respBody))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("anthropic unmarshal: %w", err)
	}
	var b strings.Builder
	for _, c := range parsed.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return finish(b.String())
}
