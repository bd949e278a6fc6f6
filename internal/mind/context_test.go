package mind

import (
	"fmt"
	"strings"
	"testing"
)

func TestConversationWindow(t *testing.T) {
	c := NewConversation(4)
	for i := 0; i < 7; i++ {
		c.Add("user", fmt.Sprintf("m%d", i))
	}
	if c.Len() != 4 {
		t.Fatalf("len = %d", c.Len())
	}
	all := c.Last(0)
	if all[0].Content != "m3" || all[3].Content != "m6" {
		t.Fatalf("window = %+v", all)
	}
	last := c.Last(2)
	if len(last) != 2 || last[0].Content != "m5" {
		t.Fatalf("last two = %+v", last)
	}

	c.Restore([]ShortMessage{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}})
	if got := c.Last(0); len(got) != 2 || got[1].Role != "assistant" {
		t.Fatalf("restored = %+v", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	p := PromptBuilder{Name: "Schnukums", Streamer: "hostess", Preset: "HYPE"}
	sys := p.System(Mood{Energy: 49.6, Positivity: 60, Engagement: 30.2, Expression: ExprSnarky})
	for _, want := range []string{
		"You are Schnukums",
		"streamer hostess",
		Presets["hype"],
		"Energy: 50/100",
		"Engagement: 30/100",
		"Expression: snarky",
	} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if (PromptBuilder{Preset: "grumpy"}).PresetText() != Presets[DefaultPreset] {
		t.Fatal("unknown preset should fall back")
	}
}

func TestAddressed(t *testing.T) {
	p := PromptBuilder{Name: "Schnukums"}
	if !p.Addressed("gg SCHNUKUMS") || p.Addressed("gg everyone") {
		t.Fatal("name matching is case-insensitive substring")
	}
	if (PromptBuilder{}).Addressed("anything") {
		t.Fatal("an empty name never matches")
	}
}
