package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/stream-companion/pkg/util"
)

// MockProvider answers without any network call. Used for local runs.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, system string, history []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", ErrEmptyReply
	}
	last := history[len(history)-1].Content
	last = strings.TrimPrefix(last, "[Stream event] ")
	last = util.Truncate(last, 80)
	return fmt.Sprintf("Oh, %q? I saw that.", last), nil
}
