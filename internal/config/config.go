package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the companion configuration, read from the environment.
type Config struct {
	Name     string `env:"COMPANION_NAME" envDefault:"Schnukums"`
	Streamer string `env:"STREAMER_NAME"`
	Preset   string `env:"PERSONALITY_PRESET" envDefault:"snarky"`

	Addr         string `env:"COMPANION_ADDR" envDefault:":4003"`
	BackendWSURL string `env:"BACKEND_WS_URL"`

	AIProvider    string `env:"AI_PROVIDER" envDefault:"mock"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	ReactionModel string `env:"REACTION_MODEL" envDefault:"claude-haiku-4-5-20251001"`
	ChatModel     string `env:"CHAT_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	ReactionMax   int    `env:"REACTION_MAX_TOKENS" envDefault:"100"`
	ChatMax       int    `env:"CHAT_MAX_TOKENS" envDefault:"200"`

	VoiceURL            string  `env:"VOICE_URL"`
	VoiceTimeoutSeconds float64 `env:"VOICE_TIMEOUT_SECONDS" envDefault:"90"`
	VoiceTTLSeconds     float64 `env:"VOICE_TTL_SECONDS" envDefault:"120"`
	VoiceHealthSeconds  float64 `env:"VOICE_HEALTH_INTERVAL_SECONDS" envDefault:"30"`

	ReactionCooldownSeconds float64 `env:"REACTION_COOLDOWN_SECONDS" envDefault:"5"`
	ChatCooldownSeconds     float64 `env:"CHAT_RESPONSE_COOLDOWN_SECONDS" envDefault:"10"`
	ContextWindow           int     `env:"CONTEXT_WINDOW_SIZE" envDefault:"20"`
	ReactionContext         int     `env:"REACTION_CONTEXT_SIZE" envDefault:"6"`
	ChatRateWindowSeconds   float64 `env:"CHAT_RATE_WINDOW_SECONDS" envDefault:"60"`
	ChatRateThreshold       float64 `env:"CHAT_RATE_THRESHOLD" envDefault:"30"`
	ProbabilityBase         float64 `env:"RESPONSE_PROBABILITY_BASE" envDefault:"1.0"`
	ProbabilityFloor        float64 `env:"RESPONSE_PROBABILITY_FLOOR" envDefault:"0.15"`

	DecayIntervalSeconds   float64 `env:"MOOD_DECAY_INTERVAL_SECONDS" envDefault:"30"`
	DecayRate              float64 `env:"MOOD_DECAY_RATE" envDefault:"2.0"`
	GenerateTimeoutSeconds float64 `env:"GENERATE_TIMEOUT_SECONDS" envDefault:"30"`
	Workers                int     `env:"GENERATION_WORKERS" envDefault:"2"`

	StoragePath            string  `env:"STORAGE_PATH" envDefault:"data/companion.json"`
	PersistIntervalSeconds float64 `env:"PERSIST_INTERVAL_SECONDS" envDefault:"60"`

	DiscordToken     string `env:"DISCORD_TOKEN"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID"`
	DiscordPrefix    string `env:"DISCORD_PREFIX" envDefault:"!"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
}

// Load reads .env from the working directory when present, then parses the
// environment into a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Preset = strings.ToLower(strings.TrimSpace(cfg.Preset))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the admission and decay math cannot use.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("COMPANION_NAME must not be empty"))
	}
	if c.ChatRateThreshold <= 0 {
		errs = append(errs, errors.New("CHAT_RATE_THRESHOLD must be positive"))
	}
	if c.ChatRateWindowSeconds <= 0 {
		errs = append(errs, errors.New("CHAT_RATE_WINDOW_SECONDS must be positive"))
	}
	if c.ProbabilityFloor < 0 || c.ProbabilityBase > 1 {
		errs = append(errs, errors.New("response probabilities must lie in [0,1]"))
	}
	if c.ProbabilityFloor > c.ProbabilityBase {
		errs = append(errs, fmt.Errorf("RESPONSE_PROBABILITY_FLOOR %.2f exceeds base %.2f", c.ProbabilityFloor, c.ProbabilityBase))
	}
	if c.ReactionCooldownSeconds < 0 || c.ChatCooldownSeconds < 0 {
		errs = append(errs, errors.New("cooldowns must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("GENERATION_WORKERS must be at least 1"))
	}
	if c.ContextWindow < 1 || c.ReactionContext < 1 {
		errs = append(errs, errors.New("context sizes must be at least 1"))
	}
	if c.DecayIntervalSeconds <= 0 {
		errs = append(errs, errors.New("MOOD_DECAY_INTERVAL_SECONDS must be positive"))
	}
	if c.DecayRate < 0 {
		errs = append(errs, errors.New("MOOD_DECAY_RATE must not be negative"))
	}
	if c.GenerateTimeoutSeconds <= 0 || c.VoiceTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.VoiceTTLSeconds <= 0 {
		errs = append(errs, errors.New("VOICE_TTL_SECONDS must be positive"))
	}
	if c.VoiceHealthSeconds <= 0 {
		errs = append(errs, errors.New("VOICE_HEALTH_INTERVAL_SECONDS must be positive"))
	}
	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		errs = append(errs, errors.New("DISCORD_CHANNEL_ID is required with DISCORD_TOKEN"))
	}
	return errors.Join(errs...)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) ReactionCooldown() time.Duration { return seconds(c.ReactionCooldownSeconds) }
func (c *Config) ChatCooldown() time.Duration     { return seconds(c.ChatCooldownSeconds) }
func (c *Config) ChatRateWindow() time.Duration   { return seconds(c.ChatRateWindowSeconds) }
func (c *Config) VoiceTimeout() time.Duration     { return seconds(c.VoiceTimeoutSeconds) }
func (c *Config) VoiceTTL() time.Duration         { return seconds(c.VoiceTTLSeconds) }
func (c *Config) VoiceHealth() time.Duration      { return seconds(c.VoiceHealthSeconds) }
func (c *Config) DecayInterval() time.Duration    { return seconds(c.DecayIntervalSeconds) }
func (c *Config) GenerateTimeout() time.Duration  { return seconds(c.GenerateTimeoutSeconds) }
func (c *Config) PersistInterval() time.Duration  { return seconds(c.PersistIntervalSeconds) }

// DiscordEnabled reports whether the Discord bridge should start.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != ""
}
