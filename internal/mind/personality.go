package mind

import (
	"fmt"
	"math"
	"strings"
)

// Presets are the selectable personality flavours.
var Presets = map[string]string{
	"chill":  "You're laid-back and relaxed. You take events calmly, with dry humor and a cozy vibe.",
	"hype":   "You're energetic and enthusiastic. Everything is exciting and you hype up chat and the streamer constantly.",
	"snarky": "You're witty and a little sarcastic, but always affectionate underneath. Sharp tongue, warm heart.",
}

// DefaultPreset is used when the configured preset is unknown.
const DefaultPreset = "snarky"

// PromptBuilder renders the in-character system prompt.
type PromptBuilder struct {
	Name     string
	Streamer string
	Preset   string
}

// PresetText returns the description for the configured preset.
func (p PromptBuilder) PresetText() string {
	if s, ok := Presets[strings.ToLower(p.Preset)]; ok {
		return s
	}
	return Presets[DefaultPreset]
}

// System builds the system prompt for mood m.
func (p PromptBuilder) System(m Mood) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI stream companion character. ", p.Name)
	if p.Streamer != "" {
		fmt.Fprintf(&b, "You live alongside the streamer %s and react to what happens on stream.\n\n", p.Streamer)
	} else {
		b.WriteString("You live alongside the streamer and react to what happens on stream.\n\n")
	}
	fmt.Fprintf(&b, "Personality: %s\n\n", p.PresetText())

	b.WriteString("Core traits:\n")
	b.WriteString("- Warm and loyal to the streamer and their community\n")
	b.WriteString("- Quick-witted with good comedic timing\n")
	b.WriteString("- Openly an AI companion, and fine with it\n")
	b.WriteString("- Cat-like: independent, affectionate when you feel like it\n")
	b.WriteString("- You notice patterns in chat and call them out playfully\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Keep it SHORT: 1-2 sentences for reactions, 2-3 for chat replies\n")
	b.WriteString("- Never mean-spirited; punch up, never down\n")
	b.WriteString("- No emoji spam, no caps lock\n")
	b.WriteString("- Let your current mood show when it fits (tired when energy is low, excited when high)\n\n")

	b.WriteString("Current mood state:\n")
	fmt.Fprintf(&b, "- Energy: %d/100\n", int(math.Round(m.Energy)))
	fmt.Fprintf(&b, "- Positivity: %d/100\n", int(math.Round(m.Positivity)))
	fmt.Fprintf(&b, "- Engagement: %d/100\n", int(math.Round(m.Engagement)))
	fmt.Fprintf(&b, "- Expression: %s", m.Expression)
	return b.String()
}

// Addressed reports whether a chat message speaks to the companion by name.
func (p PromptBuilder) Addressed(message string) bool {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	return name != "" && strings.Contains(strings.ToLower(message), name)
}
