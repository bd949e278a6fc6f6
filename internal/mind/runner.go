package mind

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/ai"
	"github.com/keshon/stream-companion/internal/voice"
	"github.com/keshon/stream-companion/pkg/util"
)

const (
	publishTimeout    = 5 * time.Second
	voiceCheckTimeout = 5 * time.Second
)

var errNoProvider = errors.New("no language model configured")

type attemptKind int

const (
	attemptReaction attemptKind = iota
	attemptChat
)

func (k attemptKind) String() string {
	if k == attemptChat {
		return "chat"
	}
	return "reaction"
}

// Config holds the tunables of a Runner.
type Config struct {
	Name            string
	Streamer        string
	Preset          string
	ContextWindow   int
	ReactionContext int
	GenerateTimeout time.Duration
	VoiceTimeout    time.Duration
	VoiceTTL        time.Duration
	VoiceHealth     time.Duration // interval of backend health checks
	Workers         int
	DecayInterval   time.Duration
	DecayRate       float64
	Admission       AdmissionConfig
}

// Deps are the collaborators of a Runner. Reaction and Chat may be the same
// provider; Voice nil means voice is disabled.
type Deps struct {
	Reaction  ai.Provider
	Chat      ai.Provider
	Voice     voice.Synthesizer
	Publisher Publisher
	Rand      Rand
	Log       zerolog.Logger
}

// Runner wires the mood state, admission gate, language model and voice lane.
// The transport calls Ingest; everything else runs in background goroutines.
type Runner struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	State        *State
	Classifier   *Classifier
	Admission    *Admission
	Decay        *DecayScheduler
	Conversation *Conversation
	Prompt       PromptBuilder

	reaction ai.Provider
	chat     ai.Provider
	synth    voice.Synthesizer
	pub      Publisher
	pubMu    sync.Mutex

	slots chan struct{}
	lane  *VoiceLane
	wg    sync.WaitGroup

	ctxMu sync.RWMutex
	ctx   context.Context

	connected atomic.Bool

	voiceMu  sync.RWMutex
	voiceErr error // last health check result

	clipMu sync.RWMutex
	clip   *voice.Clip
	clipID uint64

	counters counters
}

type counters struct {
	attempts atomic.Uint64
	busy     atomic.Uint64
	declined atomic.Uint64
	failed   atomic.Uint64
	stale    atomic.Uint64
	expired  atomic.Uint64
	voiced   atomic.Uint64
}

// NewRunner builds a Runner with the default resting mood.
func NewRunner(cfg Config, deps Deps) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.ReactionContext <= 0 {
		cfg.ReactionContext = 6
	}
	if cfg.VoiceHealth <= 0 {
		cfg.VoiceHealth = 30 * time.Second
	}
	if deps.Voice == nil {
		deps.Voice = voice.Disabled{}
	}
	if deps.Rand == nil {
		deps.Rand = NewRand()
	}
	if deps.Chat == nil {
		deps.Chat = deps.Reaction
	}
	cfg.Admission.Streamer = cfg.Streamer

	state := NewState(DefaultMood())
	r := &Runner{
		cfg:          cfg,
		log:          deps.Log,
		now:          time.Now,
		State:        state,
		Classifier:   NewClassifier(deps.Rand),
		Admission:    NewAdmission(cfg.Admission, deps.Rand),
		Decay:        NewDecayScheduler(state, cfg.DecayInterval, cfg.DecayRate, deps.Log),
		Conversation: NewConversation(cfg.ContextWindow),
		Prompt:       PromptBuilder{Name: cfg.Name, Streamer: cfg.Streamer, Preset: cfg.Preset},
		reaction:     deps.Reaction,
		chat:         deps.Chat,
		synth:        deps.Voice,
		pub:          deps.Publisher,
		slots:        make(chan struct{}, cfg.Workers),
		ctx:          context.Background(),
	}
	r.lane = newVoiceLane(deps.Voice, cfg.VoiceTimeout, deps.Log, r.onVoiceDone)
	r.Decay.SetOnDecay(func(Mood) { r.publish() })
	return r
}

// Start binds in-flight work to ctx and starts the voice lane. The decay
// scheduler is run separately via Decay.Run.
func (r *Runner) Start(ctx context.Context) {
	r.ctxMu.Lock()
	r.ctx = ctx
	r.ctxMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.lane.run(ctx)
	}()
}

// Wait blocks until in-flight attempts and the voice lane have returned, or
// timeout elapses. Cancel the Start context first.
func (r *Runner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (r *Runner) baseCtx() context.Context {
	r.ctxMu.RLock()
	defer r.ctxMu.RUnlock()
	return r.ctx
}

// SetConnected records the transport link state for Health.
func (r *Runner) SetConnected(ok bool) { r.connected.Store(ok) }

// Ingest dispatches one event. Called in arrival order by the transport.
func (r *Runner) Ingest(ev StreamEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("type", ev.Type).Msg("event handler panicked")
		}
	}()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	if ev.Type == "" {
		ev.Type = ev.Kind.String()
	}

	switch ev.Kind {
	case EventChatMessage:
		r.OnChatMessage(ev)
	case EventNewFollower:
		r.OnFollower(ev)
	case EventNewSubscriber:
		r.OnSubscriber(ev)
	case EventRaid:
		r.OnRaid(ev)
	case EventAlert:
		r.OnAlert(ev)
	case EventGiftSub, EventBits, EventDonation, EventBan, EventHost,
		EventPoll, EventPrediction, EventAdBreak, EventUnknown:
		r.OnOther(ev)
	default:
		r.OnOther(ev)
	}
}

// OnChatMessage updates mood and the chat rate, then considers a reply when
// the message addresses the companion.
func (r *Runner) OnChatMessage(ev StreamEvent) {
	m := r.observe(ev)
	now := r.now()
	r.Admission.RecordChat(now)
	r.log.Info().
		Str("user", ev.Username).
		Str("msg", truncateForLog(ev.Message, 80)).
		Str("expression", string(m.Expression)).
		Msg("chat")
	r.publish()

	if !ev.Mention && !r.Prompt.Addressed(ev.Message) {
		return
	}
	if !r.Admission.AdmitChat(ev.Username, now) {
		r.counters.declined.Add(1)
		r.log.Debug().Str("user", ev.Username).Float64("chat_rate", r.Admission.ChatRate(now)).Msg("chat reply declined")
		return
	}
	r.startAttempt(attemptChat, fmt.Sprintf("%s: %s", ev.Username, ev.Message))
}

func (r *Runner) OnFollower(ev StreamEvent) {
	m := r.observe(ev)
	r.log.Info().Str("user", ev.Username).Str("expression", string(m.Expression)).Msg("follow")
	r.publish()
	r.react(ev)
}

func (r *Runner) OnSubscriber(ev StreamEvent) {
	m := r.observe(ev)
	r.log.Info().Str("user", ev.Username).Float64("tier", ev.Amount).Str("expression", string(m.Expression)).Msg("sub")
	r.publish()
	r.react(ev)
}

func (r *Runner) OnRaid(ev StreamEvent) {
	m := r.observe(ev)
	r.log.Info().Str("user", ev.Username).Float64("viewers", ev.Amount).Str("expression", string(m.Expression)).Msg("raid")
	r.publish()
	r.react(ev)
}

func (r *Runner) OnAlert(ev StreamEvent) {
	m := r.observe(ev)
	label := ev.Message
	if label == "" {
		label = ev.Type
	}
	r.log.Info().Str("alert", label).Str("expression", string(m.Expression)).Msg("alert")
	r.publish()
	r.react(ev)
}

// OnOther handles kinds without mood rules: the event is recorded as the
// last event and may still earn a reaction.
func (r *Runner) OnOther(ev StreamEvent) {
	r.observe(ev)
	r.log.Debug().Str("type", ev.Type).Str("user", ev.Username).Msg("event without mood rule")
	r.publish()
	r.react(ev)
}

func (r *Runner) observe(ev StreamEvent) Mood {
	m, _ := r.State.Observe(ev, r.Classifier)
	return m
}

func (r *Runner) react(ev StreamEvent) {
	if !ev.Kind.ReactionWorthy() {
		return
	}
	if !r.Admission.AdmitReaction(r.now()) {
		r.counters.declined.Add(1)
		r.log.Debug().Str("type", ev.Type).Msg("reaction on cooldown")
		return
	}
	r.startAttempt(attemptReaction, "[Stream event] "+DescribeEvent(ev))
}

// startAttempt issues a new attempt id and runs it on a free generation
// slot. Returns false when every slot is busy.
func (r *Runner) startAttempt(kind attemptKind, userTurn string) bool {
	if r.reaction == nil {
		return false
	}
	select {
	case r.slots <- struct{}{}:
	default:
		r.counters.busy.Add(1)
		r.log.Debug().Str("kind", kind.String()).Msg("generation slots busy, candidate dropped")
		return false
	}

	r.Conversation.Add("user", userTurn)
	id := r.State.Issue()
	r.counters.attempts.Add(1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Interface("panic", p).Uint64("attempt", id).Msg("attempt panicked")
				r.finishAttempt(id)
			}
		}()
		r.runAttempt(id, kind)
	}()
	return true
}

func (r *Runner) runAttempt(id uint64, kind attemptKind) {
	ctx, cancel := context.WithTimeout(r.baseCtx(), r.cfg.GenerateTimeout)
	defer cancel()

	provider := r.reaction
	history := r.Conversation.Last(r.cfg.ReactionContext)
	if kind == attemptChat {
		provider = r.chat
		history = r.Conversation.Last(0)
	}
	system := r.Prompt.System(r.State.Mood())
	LogLLMCall(r.log, kind.String(), id, system, history)

	text, err := r.generate(ctx, provider, system, history)
	if err != nil {
		r.counters.failed.Add(1)
		r.log.Warn().Err(err).Uint64("attempt", id).Str("kind", kind.String()).Msg("generation abandoned")
		return
	}

	textAt := r.now()
	if kind == attemptChat {
		r.Admission.MarkChat(textAt)
	} else {
		r.Admission.MarkReaction(textAt)
	}
	r.Conversation.Add("assistant", text)

	if !r.State.BeginSpeaking(id, text) {
		r.counters.stale.Add(1)
		r.log.Info().Uint64("attempt", id).Uint64("latest", r.State.Sequence()).Msg("text superseded by a newer attempt")
		return
	}
	r.log.Info().Uint64("attempt", id).Str("kind", kind.String()).Str("text", truncateForLog(text, 150)).Msg("responding")
	r.publish()

	if !r.synth.Available() {
		r.finishAttempt(id)
		return
	}
	r.lane.submit(voiceJob{
		id:     id,
		text:   text,
		mood:   voice.MoodForExpression(string(r.State.Mood().Expression)),
		textAt: textAt,
	})
}

func (r *Runner) generate(ctx context.Context, p ai.Provider, system string, history []ai.Message) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("provider panic: %v", rec)
		}
	}()
	if p == nil {
		return "", errNoProvider
	}
	text, err = p.Generate(ctx, system, history)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.ErrEmptyReply
	}
	return text, nil
}

func (r *Runner) onVoiceDone(j voiceJob, clip *voice.Clip, err error) {
	ok := err == nil && clip != nil
	var dur time.Duration
	if ok {
		dur = clip.Duration
	}

	switch r.State.ResolveVoice(j.id, j.textAt, r.cfg.VoiceTTL, dur, ok) {
	case VoiceApplied:
		r.counters.voiced.Add(1)
		r.storeClip(clip, j.id)
		r.log.Info().Uint64("attempt", j.id).Float64("duration_s", dur.Seconds()).Msg("voice ready")
		r.publish()
	case VoiceStale:
		r.counters.stale.Add(1)
		r.log.Info().Uint64("attempt", j.id).Uint64("latest", r.State.Sequence()).Msg("voice result discarded, newer attempt issued")
	case VoiceExpired:
		r.counters.expired.Add(1)
		r.log.Info().Uint64("attempt", j.id).Dur("age", r.now().Sub(j.textAt)).Msg("voice result discarded, too old")
	case VoiceFailed:
		ev := r.log.Warn()
		if errors.Is(err, voice.ErrUnavailable) || errors.Is(err, context.Canceled) {
			ev = r.log.Debug()
		}
		ev.Err(err).Uint64("attempt", j.id).Msg("voice synthesis failed")
	}
	r.finishAttempt(j.id)
}

// finishAttempt is the terminal reset of an attempt.
func (r *Runner) finishAttempt(id uint64) {
	if r.State.FinishSpeaking(id) {
		r.publish()
	}
}

func (r *Runner) storeClip(c *voice.Clip, id uint64) {
	r.clipMu.Lock()
	defer r.clipMu.Unlock()
	r.clip = c
	r.clipID = id
}

// LatestClip returns the last applied or manually spoken clip and the
// attempt id it belongs to (0 for manual speech).
func (r *Runner) LatestClip() (*voice.Clip, uint64) {
	r.clipMu.RLock()
	defer r.clipMu.RUnlock()
	return r.clip, r.clipID
}

// Speak synthesizes text directly. It is never rate gated and does not touch
// the attempt sequence. Empty mood follows the current expression.
func (r *Runner) Speak(ctx context.Context, text, mood string) (*voice.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("speak: empty text")
	}
	if !r.synth.Available() {
		return nil, voice.ErrUnavailable
	}
	if mood == "" {
		mood = voice.MoodForExpression(string(r.State.Mood().Expression))
	}
	clip, err := r.synth.Synthesize(ctx, text, mood)
	if err != nil {
		return nil, fmt.Errorf("speak: %w", err)
	}
	if clip == nil {
		return nil, fmt.Errorf("speak: %w", voice.ErrUnavailable)
	}
	r.storeClip(clip, 0)
	r.log.Info().Str("mood", mood).Float64("duration_s", clip.Duration.Seconds()).Msg("manual speech")
	return clip, nil
}

func (r *Runner) publish() {
	if r.pub == nil {
		return
	}
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	snap := r.State.Snapshot()
	ctx, cancel := context.WithTimeout(r.baseCtx(), publishTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("publisher panicked")
		}
	}()
	if err := r.pub.Publish(ctx, snap); err != nil {
		r.log.Debug().Err(err).Msg("publish failed")
	}
}

// Status is the status query: snapshot plus the chat rate.
type Status struct {
	Snapshot
	ChatRate float64 `json:"chat_rate"`
}

func (r *Runner) Status() Status {
	return Status{
		Snapshot: r.State.Snapshot(),
		ChatRate: round1(r.Admission.ChatRate(r.now())),
	}
}

// Stats is the stats query.
type Stats struct {
	AdmissionStats
	Sequence     uint64   `json:"sequence"`
	InFlight     int      `json:"generations_in_flight"`
	Workers      int      `json:"generation_workers"`
	VoiceBusy    bool     `json:"voice_busy"`
	VoicePending bool     `json:"voice_pending"`
	Attempts     uint64   `json:"attempts"`
	BusyDrops    uint64   `json:"busy_drops"`
	Declined     uint64   `json:"declined"`
	Failed       uint64   `json:"failed"`
	Stale        uint64   `json:"stale_discards"`
	Expired      uint64   `json:"expired_discards"`
	VoiceApplied uint64   `json:"voice_applied"`
	ContextTurns int      `json:"context_turns"`
	Jobs         []string `json:"jobs,omitempty"`
}

func (r *Runner) Stats() Stats {
	busy, pending := r.lane.state()
	return Stats{
		AdmissionStats: r.Admission.Stats(r.now()),
		Sequence:       r.State.Sequence(),
		InFlight:       len(r.slots),
		Workers:        cap(r.slots),
		VoiceBusy:      busy,
		VoicePending:   pending,
		Attempts:       r.counters.attempts.Load(),
		BusyDrops:      r.counters.busy.Load(),
		Declined:       r.counters.declined.Load(),
		Failed:         r.counters.failed.Load(),
		Stale:          r.counters.stale.Load(),
		Expired:        r.counters.expired.Load(),
		VoiceApplied:   r.counters.voiced.Load(),
		ContextTurns:   r.Conversation.Len(),
	}
}

// Health is the liveness view. Status is "degraded" while a configured voice
// backend fails its health check.
type Health struct {
	Status             string `json:"status"`
	Connected          bool   `json:"connected"`
	Name               string `json:"name"`
	VoiceAvailable     bool   `json:"voice_available"`
	VoiceError         string `json:"voice_error,omitempty"`
	PersonalityEnabled bool   `json:"personality_enabled"`
}

func (r *Runner) Health() Health {
	h := Health{
		Status:             "ok",
		Connected:          r.connected.Load(),
		Name:               r.cfg.Name,
		VoiceAvailable:     r.synth.Available(),
		PersonalityEnabled: r.reaction != nil,
	}
	if !h.VoiceAvailable {
		return h
	}
	r.voiceMu.RLock()
	err := r.voiceErr
	r.voiceMu.RUnlock()
	if err != nil {
		h.Status = "degraded"
		h.VoiceAvailable = false
		h.VoiceError = err.Error()
	}
	return h
}

// CheckVoice asks the synthesis backend for its health, when it supports that, and
// keeps the result for Health.
func (r *Runner) CheckVoice(ctx context.Context) error {
	hc, ok := r.synth.(voice.HealthChecker)
	if !ok || !r.synth.Available() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, voiceCheckTimeout)
	defer cancel()
	err := hc.Health(ctx)

	r.voiceMu.Lock()
	prev := r.voiceErr
	r.voiceErr = err
	r.voiceMu.Unlock()

	switch {
	case err != nil && prev == nil:
		r.log.Warn().Err(err).Msg("voice backend unreachable, text only")
	case err == nil && prev != nil:
		r.log.Info().Msg("voice backend is back")
	}
	return err
}

// WatchVoice checks the voice backend at start and every VoiceHealth until ctx
// is done. Returns at once when the synthesizer has no health check.
func (r *Runner) WatchVoice(ctx context.Context) error {
	if _, ok := r.synth.(voice.HealthChecker); !ok || !r.synth.Available() {
		return nil
	}
	r.CheckVoice(ctx)

	ticker := time.NewTicker(r.cfg.VoiceHealth)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.CheckVoice(ctx)
		}
	}
}

func truncateForLog(s string, max int) string {
	return util.Truncate(strings.TrimSpace(s), max)
}
