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

const pollinationsURL = "https://text.pollinations.ai/openai"

type PollinationsProvider struct {
	client  *http.Client
	baseURL string
}

func NewPollinationsProvider(timeout time.Duration) *PollinationsProvider {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &PollinationsProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: pollinationsURL,
	}
}

func (p *PollinationsProvider) Generate(ctx context.Context, system string, history []Message) (string, error) {
	payload := map[string]interface{}{
		"model":       "openai",
		"messages":    withSystem(system, history),
		"temperature": 1,
		"private":     true,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pollinations http %d: %s", resp.StatusCode, truncate(body))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("pollinations returned html")
	}

	return parseChatCompletion(body)
}

// parseChatCompletion extracts the first choice of an OpenAI-style response.
func parseChatCompletion(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal: %w body=%s", err, truncate(body))
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return finish(parsed.Choices[0].Message.Content)
}
