// cmd/companion/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/ai"
	"github.com/keshon/stream-companion/internal/config"
	"github.com/keshon/stream-companion/internal/discord"
	"github.com/keshon/stream-companion/internal/httpapi"
	"github.com/keshon/stream-companion/internal/logging"
	"github.com/keshon/stream-companion/internal/mind"
	"github.com/keshon/stream-companion/internal/storage"
	"github.com/keshon/stream-companion/internal/stream"
	"github.com/keshon/stream-companion/internal/voice"
	"github.com/keshon/stream-companion/pkg/jobmgr"
)

const shutdownWait = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "companion:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	root, logCloser, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	log := logging.Component(root, "main")
	log.Info().Str("name", cfg.Name).Str("preset", cfg.Preset).Str("ai", cfg.AIProvider).Msg("starting companion")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	reaction, chat, err := providers(cfg)
	if err != nil {
		return err
	}

	var synth voice.Synthesizer = voice.Disabled{}
	if cfg.VoiceURL != "" {
		synth = voice.NewHTTPSynthesizer(cfg.VoiceURL, cfg.VoiceTimeout(), logging.Component(root, "voice"))
	} else {
		log.Warn().Msg("VOICE_URL not set, running text only")
	}

	var pubs mind.Publishers
	runner := mind.NewRunner(runnerConfig(cfg), mind.Deps{
		Reaction:  reaction,
		Chat:      chat,
		Voice:     synth,
		Publisher: &pubs,
		Log:       logging.Component(root, "mind"),
	})

	persister := storage.NewPersister(store, runner, cfg.PersistInterval(), logging.Component(root, "storage"))
	if err := persister.Restore(); err != nil {
		log.Warn().Err(err).Msg("could not restore saved state")
	}

	jobs := jobmgr.NewManager(ctx, func(msg string) {
		jobsLog := logging.Component(root, "jobs")
		jobsLog.Debug().Msg(msg)
	})

	// publishers are bound before the runner starts
	var client *stream.Client
	if cfg.BackendWSURL != "" {
		client = stream.NewClient(cfg.BackendWSURL, runner, logging.Component(root, "stream"))
		pubs = append(pubs, client)
	} else {
		log.Warn().Msg("BACKEND_WS_URL not set, events only via POST /events")
	}
	var bot *discord.Bot
	if cfg.DiscordEnabled() {
		bot = discord.New(discord.Options{
			Token:     cfg.DiscordToken,
			ChannelID: cfg.DiscordChannelID,
			Prefix:    cfg.DiscordPrefix,
			Name:      cfg.Name,
		}, runner, logging.Component(root, "discord"))
		pubs = append(pubs, bot)
	}

	runner.Start(ctx)
	start(jobs, log, "decay", runner.Decay.Run)
	start(jobs, log, "persist", persister.Run)
	start(jobs, log, "voice-health", runner.WatchVoice)
	if client != nil {
		start(jobs, log, "stream", client.Run)
	}
	if bot != nil {
		start(jobs, log, "discord", bot.Run)
	}

	api := httpapi.New(runner, jobs, logging.Component(root, "http"))
	errCh := make(chan error, 1)
	go func() { errCh <- api.Run(ctx, cfg.Addr) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, cleaning up")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http api failed")
		}
		stop()
	}

	jobs.StopAll()
	if !jobs.Wait(shutdownWait) {
		log.Warn().Strs("jobs", jobs.List()).Msg("jobs still running at shutdown")
	}
	if !runner.Wait(shutdownWait) {
		log.Warn().Msg("in-flight responses did not finish")
	}
	log.Info().Msg("companion exited cleanly")
	return nil
}

func start(jobs *jobmgr.Manager, log zerolog.Logger, name string, fn func(context.Context) error) {
	if err := jobs.StartAsync(name, fn); err != nil {
		log.Error().Err(err).Str("job", name).Msg("failed to start job")
	}
}

func providers(cfg *config.Config) (reaction, chat ai.Provider, err error) {
	opts := ai.Options{
		Engine:  cfg.AIProvider,
		APIKey:  cfg.AnthropicKey,
		Timeout: cfg.GenerateTimeout(),
	}
	ro := opts
	ro.Model, ro.MaxTokens = cfg.ReactionModel, cfg.ReactionMax
	if reaction, err = ai.New(ro); err != nil {
		return nil, nil, fmt.Errorf("reaction model: %w", err)
	}
	co := opts
	co.Model, co.MaxTokens = cfg.ChatModel, cfg.ChatMax
	if chat, err = ai.New(co); err != nil {
		return nil, nil, fmt.Errorf("chat model: %w", err)
	}
	return reaction, chat, nil
}

func runnerConfig(cfg *config.Config) mind.Config {
	return mind.Config{
		Name:            cfg.Name,
		Streamer:        cfg.Streamer,
		Preset:          cfg.Preset,
		ContextWindow:   cfg.ContextWindow,
		ReactionContext: cfg.ReactionContext,
		GenerateTimeout: cfg.GenerateTimeout(),
		VoiceTimeout:    cfg.VoiceTimeout(),
		VoiceTTL:        cfg.VoiceTTL(),
		VoiceHealth:     cfg.VoiceHealth(),
		Workers:         cfg.Workers,
		DecayInterval:   cfg.DecayInterval(),
		DecayRate:       cfg.DecayRate,
		Admission: mind.AdmissionConfig{
			ReactionCooldown: cfg.ReactionCooldown(),
			ChatCooldown:     cfg.ChatCooldown(),
			ChatRateWindow:   cfg.ChatRateWindow(),
			Probability: mind.ProbabilityConfig{
				Threshold: cfg.ChatRateThreshold,
				Base:      cfg.ProbabilityBase,
				Floor:     cfg.ProbabilityFloor,
			},
		},
	}
}
