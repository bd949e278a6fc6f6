package mind

import (
	"sync"
	"time"

	"github.com/keshon/stream-companion/internal/ai"
)

// Conversation is the bounded rolling context sent to the language model.
type Conversation struct {
	mu    sync.Mutex
	max   int
	turns []ShortMessage
}

// NewConversation keeps at most max turns (20 when not positive).
func NewConversation(max int) *Conversation {
	if max <= 0 {
		max = 20
	}
	return &Conversation{max: max, turns: make([]ShortMessage, 0, max)}
}

// Add appends a turn and drops the oldest beyond the window.
func (c *Conversation) Add(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, ShortMessage{Role: role, Content: content, At: time.Now()})
	if over := len(c.turns) - c.max; over > 0 {
		c.turns = append(c.turns[:0], c.turns[over:]...)
	}
}

// Last returns up to n most recent turns as model messages. n <= 0 means all.
func (c *Conversation) Last(n int) []ai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if n > 0 && len(c.turns) > n {
		start = len(c.turns) - n
	}
	out := make([]ai.Message, 0, len(c.turns)-start)
	for _, t := range c.turns[start:] {
		out = append(out, ai.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// Turns returns a copy of the window.
func (c *Conversation) Turns() []ShortMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ShortMessage(nil), c.turns...)
}

// Restore replaces the window, keeping the newest turns.
func (c *Conversation) Restore(turns []ShortMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(turns) > c.max {
		turns = turns[len(turns)-c.max:]
	}
	c.turns = append(c.turns[:0], turns...)
}

// Len returns the number of turns held.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
