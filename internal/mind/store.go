package mind

import (
	"sync"
	"time"
)

// VoiceOutcome says what happened to a finished voice call.
type VoiceOutcome int

const (
	VoiceApplied VoiceOutcome = iota
	VoiceStale                // a newer attempt was issued
	VoiceExpired              // older than the TTL
	VoiceFailed               // synthesis returned nothing
)

func (o VoiceOutcome) String() string {
	switch o {
	case VoiceApplied:
		return "applied"
	case VoiceStale:
		return "stale"
	case VoiceExpired:
		return "expired"
	}
	return "failed"
}

// State is the companion's single owned state. Every mutation of mood and
// speaking fields goes through its methods under one lock. Safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	mood       Mood
	lastEvent  *StreamEvent
	speaking   bool
	owner      uint64 // attempt id that raised speaking
	response   string
	voiceReady bool
	voiceDur   time.Duration
	startedAt  time.Time
	seq        uint64
	now        func() time.Time
}

// NewState creates state with initial mood m (clamped).
func NewState(m Mood) *State {
	m.Clamp()
	return &State{mood: m, startedAt: time.Now(), now: time.Now}
}

// Mood returns a copy of the current mood.
func (s *State) Mood() Mood {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mood
}

// Restore replaces the mood, e.g. with a persisted one at startup.
func (s *State) Restore(m Mood) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Clamp()
	s.mood = m
}

// Observe records ev as the last event and applies the classifier to mood
// as one atomic step. Returns the new mood and whether a rule matched.
func (s *State) Observe(ev StreamEvent, c *Classifier) (Mood, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := ev
	s.lastEvent = &e
	ok := c.Apply(&s.mood, ev)
	return s.mood, ok
}

// Mutate runs fn on the mood under the lock and clamps afterwards.
func (s *State) Mutate(fn func(*Mood)) Mood {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.mood)
	s.mood.Clamp()
	return s.mood
}

// LastEvent returns a copy of the last observed event, or nil.
func (s *State) LastEvent() *StreamEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastEvent == nil {
		return nil
	}
	e := *s.lastEvent
	return &e
}

// Issue increments the attempt counter and returns the new id.
func (s *State) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Sequence returns the latest issued attempt id.
func (s *State) Sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// BeginSpeaking shows text for attempt id. Refused when a newer attempt exists.
func (s *State) BeginSpeaking(id uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.seq {
		return false
	}
	s.response = text
	s.speaking = true
	s.owner = id
	s.voiceReady = false
	s.voiceDur = 0
	return true
}

// ResolveVoice applies a finished voice call for attempt id. The id check and
// the write happen under the same lock.
func (s *State) ResolveVoice(id uint64, textAt time.Time, ttl, duration time.Duration, ok bool) VoiceOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.seq {
		return VoiceStale
	}
	if !ok {
		return VoiceFailed
	}
	if ttl > 0 && s.now().Sub(textAt) >= ttl {
		return VoiceExpired
	}
	s.voiceReady = true
	s.voiceDur = duration
	return VoiceApplied
}

// FinishSpeaking clears the speaking flags if attempt id still owns them.
func (s *State) FinishSpeaking(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.speaking || s.owner != id {
		return false
	}
	s.speaking = false
	s.voiceReady = false
	return true
}

// Uptime is the time since the state was created.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.startedAt)
}

// Snapshot is the published, serialized view of the state.
type Snapshot struct {
	Mood            Mood         `json:"mood"`
	LastEvent       *StreamEvent `json:"last_event"`
	IsSpeaking      bool         `json:"is_speaking"`
	CurrentResponse string       `json:"current_response"`
	VoiceAudioReady bool         `json:"voice_audio_ready"`
	VoiceDuration   float64      `json:"voice_duration"`
	Uptime          float64      `json:"uptime"`
	EventID         uint64       `json:"event_id"`
	ResponseID      uint64       `json:"response_id"` // attempt that produced CurrentResponse
}

// Snapshot copies the state for readers.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.mood
	m.Energy = round1(m.Energy)
	m.Positivity = round1(m.Positivity)
	m.Engagement = round1(m.Engagement)
	var last *StreamEvent
	if s.lastEvent != nil {
		e := *s.lastEvent
		last = &e
	}
	return Snapshot{
		Mood:            m,
		LastEvent:       last,
		IsSpeaking:      s.speaking,
		CurrentResponse: s.response,
		VoiceAudioReady: s.voiceReady,
		VoiceDuration:   round1(s.voiceDur.Seconds()),
		Uptime:          round1(s.now().Sub(s.startedAt).Seconds()),
		EventID:         s.seq,
		ResponseID:      s.owner,
	}
}
