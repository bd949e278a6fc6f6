package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/stream-companion/internal/mind"
)

// toEvent turns a channel message into a chat event. A direct mention of the
// bot marks the event as addressed and is removed from the text.
func toEvent(selfID string, m *discordgo.Message) (mind.StreamEvent, bool) {
	content := m.Content
	mentioned := false
	if selfID != "" {
		for _, u := range m.Mentions {
			if u != nil && u.ID == selfID {
				mentioned = true
				break
			}
		}
		content = strings.NewReplacer("<@"+selfID+">", "", "<@!"+selfID+">", "").Replace(content)
	}
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return mind.StreamEvent{}, false
	}

	ev := mind.NewEvent(mind.EventChatMessage, m.Author.Username, content, 0)
	if !m.Timestamp.IsZero() {
		ev.Timestamp = m.Timestamp
	}
	ev.Mention = mentioned
	return ev, true
}
