package mind

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestApplyDecaySixtySeconds(t *testing.T) {
	m := Mood{Energy: 80, Positivity: 70, Engagement: 60, Expression: ExprHappy}
	if !ApplyDecay(&m, 2.0, 60*time.Second) {
		t.Fatal("60s must count as a tick")
	}
	if m.Energy != 76 || m.Engagement != 58 || m.Positivity != 70 {
		t.Fatalf("mood = %+v", m)
	}
	if m.Expression != ExprHappy {
		t.Fatalf("expression changed to %s", m.Expression)
	}
}

func TestApplyDecayFloors(t *testing.T) {
	m := Mood{Energy: 12, Engagement: 6, Expression: ExprExcited}
	for i := 0; i < 50; i++ {
		ApplyDecay(&m, 5, 10*time.Minute)
	}
	if m.Energy != EnergyFloor || m.Engagement != EngagementFloor {
		t.Fatalf("floors not held: %+v", m)
	}
	if m.Expression != ExprSleepy {
		t.Fatalf("expression = %s, want sleepy", m.Expression)
	}
}

func TestApplyDecayIdleWhenDisengaged(t *testing.T) {
	m := Mood{Energy: 90, Engagement: 21, Expression: ExprLaughing}
	ApplyDecay(&m, 2, 90*time.Second)
	if m.Engagement != 18 || m.Expression != ExprIdle {
		t.Fatalf("mood = %+v", m)
	}
}

func TestApplyDecayIgnoresShortElapsed(t *testing.T) {
	m := Mood{Energy: 80, Engagement: 60}
	if ApplyDecay(&m, 2, 999*time.Millisecond) {
		t.Fatal("sub-second elapsed should be a no-op")
	}
	if m.Energy != 80 || m.Engagement != 60 {
		t.Fatalf("mood changed: %+v", m)
	}
}

func TestDecaySchedulerTick(t *testing.T) {
	s := NewState(Mood{Energy: 80, Positivity: 50, Engagement: 60, Expression: ExprHappy})
	d := NewDecayScheduler(s, time.Second, 2.0, zerolog.Nop())
	start := time.Now()
	d.last = start

	var seen []Mood
	d.SetOnDecay(func(m Mood) { seen = append(seen, m) })

	if d.Tick(start.Add(500 * time.Millisecond)) {
		t.Fatal("tick under a second must be skipped")
	}
	if !d.Tick(start.Add(60 * time.Second)) {
		t.Fatal("tick after 60s must apply")
	}
	m := s.Mood()
	if m.Energy != 76 || m.Engagement != 58 {
		t.Fatalf("mood = %+v", m)
	}
	if len(seen) != 1 {
		t.Fatalf("callback ran %d times", len(seen))
	}
}
