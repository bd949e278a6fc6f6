package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyReply is returned when a backend answered but produced no usable text.
var ErrEmptyReply = errors.New("ai: empty reply")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces one in-character reply for a system prompt and a
// conversation history. Implementations must honour ctx.
type Provider interface {
	Generate(ctx context.Context, system string, history []Message) (string, error)
}

// Options selects and tunes a backend.
type Options struct {
	Engine    string // mock | anthropic | pollinations | g4f:<model>
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// New builds the provider named by o.Engine.
func New(o Options) (Provider, error) {
	engine := strings.ToLower(strings.TrimSpace(o.Engine))
	switch {
	case engine == "mock":
		return NewMockProvider(), nil
	case engine == "anthropic":
		if o.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider: api key missing")
		}
		return NewAnthropicProvider(o.APIKey, o.Model, o.MaxTokens, o.Timeout), nil
	case engine == "pollinations":
		return NewPollinationsProvider(o.Timeout), nil
	case engine == "g4f" || strings.HasPrefix(engine, "g4f:"):
		return NewG4FProvider(o.Engine, o.Timeout), nil
	case engine == "":
		return nil, fmt.Errorf("AI_PROVIDER is empty")
	}
	return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", o.Engine)
}

// withSystem prepends system as a chat message for OpenAI-style backends.
func withSystem(system string, history []Message) []Message {
	out := make([]Message, 0, len(history)+1)
	if system != "" {
		out = append(out, Message{Role: "system", Content: system})
	}
	return append(out, history...)
}
