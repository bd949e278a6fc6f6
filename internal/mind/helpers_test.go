package mind

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/keshon/stream-companion/internal/ai"
	"github.com/keshon/stream-companion/internal/voice"
)

// seqRand replays fixed draws; exhausted queues return zero.
type seqRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

func (s *seqRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *seqRand) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	i := s.ints[0] % n
	s.ints = s.ints[1:]
	return i
}

// constRand always returns f and 0.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }
func (c constRand) Intn(int) int     { return 0 }

// gatedProvider answers "re: <last message>" once its gate for that call is
// released. Calls beyond the configured gates answer immediately.
type gatedProvider struct {
	mu     sync.Mutex
	calls  int
	gates  map[int]chan struct{}
	fail   map[int]error
	panics map[int]bool
	seen   chan int
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		gates:  map[int]chan struct{}{},
		fail:   map[int]error{},
		panics: map[int]bool{},
		seen:   make(chan int, 16),
	}
}

func (p *gatedProvider) gate(call int) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	p.gates[call] = ch
	return ch
}

func (p *gatedProvider) Generate(ctx context.Context, system string, history []ai.Message) (string, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	gate := p.gates[n]
	err := p.fail[n]
	boom := p.panics[n]
	p.mu.Unlock()
	select {
	case p.seen <- n:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if boom {
		panic("provider exploded")
	}
	if err != nil {
		return "", err
	}
	return "re: " + history[len(history)-1].Content, nil
}

// gatedSynth blocks each call on a gate keyed by text.
type gatedSynth struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	started  chan string
	duration time.Duration
}

func newGatedSynth() *gatedSynth {
	return &gatedSynth{gates: map[string]chan struct{}{}, started: make(chan string, 16), duration: 1500 * time.Millisecond}
}

func (s *gatedSynth) gate(text string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[text] = ch
	return ch
}

func (s *gatedSynth) Available() bool { return true }

func (s *gatedSynth) Synthesize(ctx context.Context, text, mood string) (*voice.Clip, error) {
	s.mu.Lock()
	gate := s.gates[text]
	s.mu.Unlock()
	select {
	case s.started <- text:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &voice.Clip{Audio: []byte("RIFF"), SampleRate: voice.DefaultSampleRate, Duration: s.duration}, nil
}

// checkedSynth is a gatedSynth whose backend health can be toggled.
type checkedSynth struct {
	*gatedSynth
	mu  sync.Mutex
	err error
}

func newCheckedSynth() *checkedSynth {
	return &checkedSynth{gatedSynth: newGatedSynth()}
}

func (s *checkedSynth) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *checkedSynth) Health(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// recorder keeps every published snapshot.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Publish(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return nil
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
	var zero T
	return zero
}

func testConfig() Config {
	return Config{
		Name:            "Schnukums",
		Streamer:        "hostess",
		Preset:          "snarky",
		ContextWindow:   20,
		ReactionContext: 6,
		GenerateTimeout: 2 * time.Second,
		VoiceTimeout:    2 * time.Second,
		VoiceTTL:        2 * time.Minute,
		Workers:         2,
		DecayInterval:   time.Hour,
		DecayRate:       2,
		Admission: AdmissionConfig{
			ChatRateWindow: time.Minute,
			Probability:    DefaultProbabilityConfig(),
		},
	}
}
