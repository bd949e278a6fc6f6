package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/mind"
	"github.com/keshon/stream-companion/internal/voice"
	"github.com/keshon/stream-companion/pkg/cmd"
	"github.com/keshon/stream-companion/pkg/retrylimit"
)

const postQueue = 8

// Companion is what the bridge needs from the runner.
type Companion interface {
	Ingest(ev mind.StreamEvent)
	Status() mind.Status
	Stats() mind.Stats
	Speak(ctx context.Context, text, mood string) (*voice.Clip, error)
}

// sender is the part of *discordgo.Session the bridge writes through.
type sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Options configure the bridge.
type Options struct {
	Token     string
	ChannelID string
	Prefix    string
	Name      string
}

// Bot bridges one Discord channel to the companion: messages become chat
// events, prefixed messages run commands and new responses are posted back.
type Bot struct {
	opts Options
	c    Companion
	log  zerolog.Logger
	reg  *cmd.Registry

	mu     sync.RWMutex
	out    sender
	selfID string

	posts    chan string
	postMu   sync.Mutex
	lastPost uint64
}

// New builds the bridge. Run opens the Discord session.
func New(opts Options, c Companion, log zerolog.Logger) *Bot {
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	b := &Bot{
		opts:  opts,
		c:     c,
		log:   log,
		posts: make(chan string, postQueue),
	}
	b.reg = cmd.NewRegistry(cmd.Recover(), cmd.Logging(log))
	for _, command := range b.commands() {
		b.reg.Register(command)
	}
	return b
}

// Run opens the session, serves until ctx is done and closes it.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.opts.Token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = 5
	cfg.InitialDelay = 2 * time.Second
	cfg.Log = b.log
	err = retrylimit.WithRetryConfig(ctx, func(context.Context) error {
		return dg.Open()
	}, nil, cfg)
	if err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	b.setSender(dg)
	b.postLoop(ctx)
	b.log.Info().Msg("discord bridge stopped")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	b.selfID = r.User.ID
	b.mu.Unlock()
	b.log.Info().Str("user", r.User.Username).Str("channel", b.opts.ChannelID).Msg("discord bridge ready")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(context.Background(), m.Message)
}

// handleMessage routes one channel message to a command or to the companion.
func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	b.mu.RLock()
	self := b.selfID
	b.mu.RUnlock()
	if m.Author.ID == self || m.ChannelID != b.opts.ChannelID {
		return
	}

	if name, args, ok := cmd.Parse(b.opts.Prefix, m.Content); ok {
		b.runCommand(ctx, m, name, args)
		return
	}

	ev, ok := toEvent(self, m)
	if !ok {
		return
	}
	b.c.Ingest(ev)
}

func (b *Bot) runCommand(ctx context.Context, m *discordgo.Message, name string, args []string) {
	c := b.reg.Get(name)
	if c == nil {
		b.log.Debug().Str("command", name).Msg("unknown command")
		return
	}
	inv := &cmd.Invocation{Args: args, User: m.Author.Username, Data: m}
	if err := c.Run(ctx, inv); err != nil {
		b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Error running command: %v", err),
			Color:       embedColorError,
		})
		return
	}
	if inv.Reply != "" {
		b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{Description: inv.Reply, Color: embedColor})
	}
}

// Publish posts each new companion response once. It implements mind.Publisher
// and never blocks on Discord.
func (b *Bot) Publish(_ context.Context, snap mind.Snapshot) error {
	if !snap.IsSpeaking || strings.TrimSpace(snap.CurrentResponse) == "" {
		return nil
	}
	b.postMu.Lock()
	if snap.ResponseID <= b.lastPost {
		b.postMu.Unlock()
		return nil
	}
	b.lastPost = snap.ResponseID
	b.postMu.Unlock()

	select {
	case b.posts <- snap.CurrentResponse:
		return nil
	default:
		return errors.New("discord: post queue full")
	}
}

func (b *Bot) postLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-b.posts:
			b.send(b.opts.ChannelID, text)
		}
	}
}

func (b *Bot) setSender(s sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = s
}

func (b *Bot) client() sender {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.out
}

func (b *Bot) send(channelID, text string) {
	out := b.client()
	if out == nil {
		return
	}
	if _, err := out.ChannelMessageSend(channelID, text); err != nil {
		b.log.Warn().Err(err).Msg("failed to post message")
	}
}

func (b *Bot) sendEmbed(channelID string, e *discordgo.MessageEmbed) {
	out := b.client()
	if out == nil {
		return
	}
	if _, err := out.ChannelMessageSendEmbed(channelID, e); err != nil {
		b.log.Warn().Err(err).Msg("failed to post embed")
	}
}

func (b *Bot) sendClip(channelID string, clip *voice.Clip) error {
	out := b.client()
	if out == nil {
		return errors.New("discord: not connected")
	}
	_, err := out.ChannelFileSend(channelID, "speech.wav", bytes.NewReader(clip.Audio))
	return err
}
