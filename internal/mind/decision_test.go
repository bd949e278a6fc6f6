package mind

import (
	"math"
	"testing"
	"time"
)

func TestResponseProbability(t *testing.T) {
	cfg := DefaultProbabilityConfig()
	cases := []struct {
		rate float64
		want float64
	}{
		{0, 1.0},
		{30, 1.0},
		{60, 0.575},
		{90, 0.15},
		{500, 0.15},
	}
	for _, tc := range cases {
		if got := ResponseProbability(cfg, tc.rate); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("rate %v: probability = %v, want %v", tc.rate, got, tc.want)
		}
	}
}

func TestResponseProbabilityBoundsAndMonotonic(t *testing.T) {
	cfg := ProbabilityConfig{Threshold: 12, Base: 0.8, Floor: 0.2}
	prev := math.Inf(1)
	for rate := 0.0; rate <= 400; rate += 0.5 {
		p := ResponseProbability(cfg, rate)
		if p < cfg.Floor || p > cfg.Base {
			t.Fatalf("rate %v: probability %v outside [floor, base]", rate, p)
		}
		if p > prev {
			t.Fatalf("rate %v: probability rose from %v to %v", rate, prev, p)
		}
		prev = p
	}
}

func newTestAdmission(rnd Rand) *Admission {
	return NewAdmission(AdmissionConfig{
		ReactionCooldown: 5 * time.Second,
		ChatCooldown:     10 * time.Second,
		ChatRateWindow:   time.Minute,
		Probability:      DefaultProbabilityConfig(),
		Streamer:         "Hostess",
	}, rnd)
}

func TestAdmitChatAtFloor(t *testing.T) {
	a := newTestAdmission(constRand(0.149))
	now := time.Now()
	for i := 0; i < 90; i++ {
		a.RecordChat(now.Add(-time.Duration(i) * 500 * time.Millisecond))
	}
	if got := a.Probability(now); math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("probability = %v, want floor 0.15", got)
	}
	if !a.AdmitChat("viewer", now) {
		t.Fatal("draw under the floor should admit")
	}

	a = newTestAdmission(constRand(0.151))
	for i := 0; i < 90; i++ {
		a.RecordChat(now)
	}
	if a.AdmitChat("viewer", now) {
		t.Fatal("draw over the floor should decline")
	}
}

func TestStreamerBypassesProbabilityNotCooldown(t *testing.T) {
	a := newTestAdmission(constRand(0.999))
	now := time.Now()
	for i := 0; i < 300; i++ {
		a.RecordChat(now)
	}
	if a.AdmitChat("viewer", now) {
		t.Fatal("viewer should be declined at this load")
	}
	if !a.AdmitChat("hostess", now) {
		t.Fatal("streamer must bypass the probability gate")
	}
	a.MarkChat(now)
	if a.AdmitChat("HOSTESS", now.Add(3*time.Second)) {
		t.Fatal("streamer must still respect the chat cooldown")
	}
	if !a.AdmitChat("hostess", now.Add(10*time.Second)) {
		t.Fatal("cooldown should have elapsed")
	}
}

func TestReactionCooldownOnly(t *testing.T) {
	a := newTestAdmission(constRand(0.999))
	now := time.Now()
	for i := 0; i < 300; i++ {
		a.RecordChat(now)
	}
	if !a.AdmitReaction(now) {
		t.Fatal("reactions ignore chat load")
	}
	a.MarkReaction(now)
	if a.AdmitReaction(now.Add(4 * time.Second)) {
		t.Fatal("reaction cooldown not enforced")
	}
	if !a.AdmitReaction(now.Add(5 * time.Second)) {
		t.Fatal("reaction cooldown should have elapsed")
	}
}

func TestChatRateWindow(t *testing.T) {
	r := NewChatRate(time.Minute)
	now := time.Now()
	r.Record(now.Add(-90 * time.Second))
	r.Record(now.Add(-30 * time.Second))
	r.Record(now)
	if got := r.PerMinute(now); got != 2 {
		t.Fatalf("per minute = %v, want 2", got)
	}

	half := NewChatRate(30 * time.Second)
	half.Record(now)
	if got := half.PerMinute(now); got != 2 {
		t.Fatalf("30s window per minute = %v, want 2", got)
	}
}

func TestAdmissionStats(t *testing.T) {
	a := newTestAdmission(constRand(0))
	now := time.Now()
	a.MarkReaction(now)
	st := a.Stats(now.Add(2 * time.Second))
	if st.ReactionRemaining != 3 || st.ChatRemaining != 0 || st.ResponseProbability != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
