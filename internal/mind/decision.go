package mind

import (
	"strings"
	"time"
)

// ProbabilityConfig shapes the chat reply gate.
type ProbabilityConfig struct {
	Threshold float64 // chat messages per minute before scaling starts
	Base      float64 // probability at or below Threshold
	Floor     float64 // lowest probability under any load
}

// DefaultProbabilityConfig returns threshold 30/min, base 1.0, floor 0.15.
func DefaultProbabilityConfig() ProbabilityConfig {
	return ProbabilityConfig{Threshold: 30, Base: 1.0, Floor: 0.15}
}

// ResponseProbability decays linearly from Base at Threshold to Floor at
// 3*Threshold and holds at Floor beyond.
func ResponseProbability(cfg ProbabilityConfig, rate float64) float64 {
	if rate <= cfg.Threshold || cfg.Threshold <= 0 {
		return cfg.Base
	}
	excess := (rate - cfg.Threshold) / (2 * cfg.Threshold)
	return max(cfg.Floor, cfg.Base-excess*(cfg.Base-cfg.Floor))
}

// AdmissionConfig configures an Admission controller.
type AdmissionConfig struct {
	ReactionCooldown time.Duration
	ChatCooldown     time.Duration
	ChatRateWindow   time.Duration
	Probability      ProbabilityConfig
	Streamer         string
}

// Admission decides whether a candidate reaction or chat reply may proceed.
type Admission struct {
	reaction *Cooldown
	chat     *Cooldown
	rate     *ChatRate
	prob     ProbabilityConfig
	streamer string
	rnd      Rand
}

// NewAdmission builds the controller. nil rnd uses NewRand.
func NewAdmission(cfg AdmissionConfig, rnd Rand) *Admission {
	if rnd == nil {
		rnd = NewRand()
	}
	return &Admission{
		reaction: NewCooldown(cfg.ReactionCooldown),
		chat:     NewCooldown(cfg.ChatCooldown),
		rate:     NewChatRate(cfg.ChatRateWindow),
		prob:     cfg.Probability,
		streamer: strings.ToLower(strings.TrimSpace(cfg.Streamer)),
		rnd:      rnd,
	}
}

// RecordChat feeds one chat message into the rate window.
func (a *Admission) RecordChat(now time.Time) {
	a.rate.Record(now)
}

// ChatRate returns the current messages per minute.
func (a *Admission) ChatRate(now time.Time) float64 {
	return a.rate.PerMinute(now)
}

// Probability returns the chat reply probability at now.
func (a *Admission) Probability(now time.Time) float64 {
	return ResponseProbability(a.prob, a.rate.PerMinute(now))
}

// IsStreamer reports whether username is the configured streamer account.
func (a *Admission) IsStreamer(username string) bool {
	return a.streamer != "" && strings.ToLower(strings.TrimSpace(username)) == a.streamer
}

// AdmitReaction gates event reactions by the reaction cooldown only.
func (a *Admission) AdmitReaction(now time.Time) bool {
	return a.reaction.Ready(now)
}

// AdmitChat gates a chat reply: cooldown first, then one Bernoulli draw at
// the current probability. The streamer skips the draw.
func (a *Admission) AdmitChat(username string, now time.Time) bool {
	if !a.chat.Ready(now) {
		return false
	}
	if a.IsStreamer(username) {
		return true
	}
	return a.rnd.Float64() < a.Probability(now)
}

// MarkReaction starts the reaction cooldown.
func (a *Admission) MarkReaction(now time.Time) { a.reaction.Mark(now) }

// MarkChat starts the chat cooldown.
func (a *Admission) MarkChat(now time.Time) { a.chat.Mark(now) }

// AdmissionStats is the admission part of the stats query.
type AdmissionStats struct {
	ChatRate            float64 `json:"chat_rate"`
	ResponseProbability float64 `json:"response_probability"`
	ProbabilityFloor    float64 `json:"probability_floor"`
	ProbabilityBase     float64 `json:"probability_base"`
	RateThreshold       float64 `json:"rate_threshold"`
	RateWindow          float64 `json:"rate_window_seconds"`
	ReactionCooldown    float64 `json:"reaction_cooldown_seconds"`
	ReactionRemaining   float64 `json:"reaction_cooldown_remaining"`
	ChatCooldown        float64 `json:"chat_cooldown_seconds"`
	ChatRemaining       float64 `json:"chat_cooldown_remaining"`
}

// Stats reports the gate at now.
func (a *Admission) Stats(now time.Time) AdmissionStats {
	rate := a.rate.PerMinute(now)
	return AdmissionStats{
		ChatRate:            round1(rate),
		ResponseProbability: ResponseProbability(a.prob, rate),
		ProbabilityFloor:    a.prob.Floor,
		ProbabilityBase:     a.prob.Base,
		RateThreshold:       a.prob.Threshold,
		RateWindow:          a.rate.Window().Seconds(),
		ReactionCooldown:    a.reaction.Interval().Seconds(),
		ReactionRemaining:   a.reaction.Remaining(now).Seconds(),
		ChatCooldown:        a.chat.Interval().Seconds(),
		ChatRemaining:       a.chat.Remaining(now).Seconds(),
	}
}
