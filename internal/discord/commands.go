package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/stream-companion/internal/voice"
	"github.com/keshon/stream-companion/pkg/cmd"
	"github.com/keshon/stream-companion/pkg/util"
)

const (
	embedColor      = 0x9b59b6
	embedColorError = 0xe74c3c
)

func (b *Bot) commands() []cmd.Command {
	return []cmd.Command{
		&cmd.Func{N: "mood", Desc: "Show the current mood", Fn: b.cmdMood},
		&cmd.Func{N: "stats", Desc: "Show reply gate and pipeline stats", Fn: b.cmdStats},
		&cmd.Func{N: "speak", Desc: "Say something out loud: speak <text>", Fn: b.cmdSpeak},
		&cmd.Func{N: "help", Desc: "List commands", Fn: b.cmdHelp},
	}
}

func (b *Bot) cmdMood(_ context.Context, inv *cmd.Invocation) error {
	st := b.c.Status()
	m := st.Mood
	inv.Reply = fmt.Sprintf("**%s** is feeling `%s`\nEnergy %.1f | Positivity %.1f | Engagement %.1f\nChat rate %.1f/min, up %s",
		b.opts.Name, m.Expression, m.Energy, m.Positivity, m.Engagement, st.ChatRate, util.FormatUptime(secondsDuration(st.Uptime)))
	return nil
}

func (b *Bot) cmdStats(_ context.Context, inv *cmd.Invocation) error {
	s := b.c.Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reply probability **%.0f%%** at %.1f msgs/min (floor %.0f%%)\n",
		s.ResponseProbability*100, s.ChatRate, s.ProbabilityFloor*100)
	fmt.Fprintf(&sb, "Cooldowns: reaction %.0fs (%.1fs left), chat %.0fs (%.1fs left)\n",
		s.ReactionCooldown, s.ReactionRemaining, s.ChatCooldown, s.ChatRemaining)
	fmt.Fprintf(&sb, "Attempt #%d, %d/%d generating, voice busy %t\n", s.Sequence, s.InFlight, s.Workers, s.VoiceBusy)
	fmt.Fprintf(&sb, "Dropped busy %d, declined %d, failed %d, stale %d, expired %d",
		s.BusyDrops, s.Declined, s.Failed, s.Stale, s.Expired)
	inv.Reply = sb.String()
	return nil
}

func (b *Bot) cmdSpeak(ctx context.Context, inv *cmd.Invocation) error {
	text := strings.TrimSpace(strings.Join(inv.Args, " "))
	if text == "" {
		return errors.New("usage: speak <text>")
	}
	clip, err := b.c.Speak(ctx, text, "")
	if errors.Is(err, voice.ErrUnavailable) {
		return errors.New("voice is not available right now")
	}
	if err != nil {
		return err
	}
	m, ok := inv.Data.(*discordgo.Message)
	if !ok {
		return errors.New("speak: no channel to reply in")
	}
	return b.sendClip(m.ChannelID, clip)
}

func (b *Bot) cmdHelp(_ context.Context, inv *cmd.Invocation) error {
	var sb strings.Builder
	for _, c := range b.reg.GetAll() {
		fmt.Fprintf(&sb, "`%s%s` %s\n", b.opts.Prefix, c.Name(), c.Description())
	}
	inv.Reply = strings.TrimSpace(sb.String())
	return nil
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
