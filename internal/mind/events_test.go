package mind

import "testing"

func TestRaidScalesAndClamps(t *testing.T) {
	c := NewClassifier(&seqRand{})
	m := Mood{Energy: 50, Positivity: 60, Engagement: 30, Expression: ExprIdle}
	if !c.Apply(&m, NewEvent(EventRaid, "bigstreamer", "", 50)) {
		t.Fatal("raid has a rule")
	}
	want := Mood{Energy: 95, Positivity: 100, Engagement: 90, Expression: ExprExcited}
	if m != want {
		t.Fatalf("mood = %+v, want %+v", m, want)
	}
}

func TestRaidSmallPartyScalesDown(t *testing.T) {
	c := NewClassifier(&seqRand{})
	m := Mood{}
	c.Apply(&m, NewEvent(EventRaid, "friend", "", 5))
	if m.Positivity != 7.5 || m.Engagement != 10 || m.Energy != 7.5 {
		t.Fatalf("mood = %+v", m)
	}
}

func TestSubscriberTierOne(t *testing.T) {
	for i, want := range subscriberExpressions {
		c := NewClassifier(&seqRand{ints: []int{i}})
		m := Mood{Expression: ExprIdle}
		c.Apply(&m, NewEvent(EventNewSubscriber, "newsub", "", 1))
		if m.Positivity != 12 || m.Engagement != 15 || m.Energy != 10 {
			t.Fatalf("mood = %+v", m)
		}
		if m.Expression != want {
			t.Fatalf("expression = %s, want %s", m.Expression, want)
		}
	}
}

func TestSubscriberHighTierAlwaysExcited(t *testing.T) {
	c := NewClassifier(&seqRand{ints: []int{2}})
	m := Mood{}
	c.Apply(&m, NewEvent(EventNewSubscriber, "whale", "", 3))
	if m.Expression != ExprExcited || m.Positivity != 36 || m.Engagement != 45 || m.Energy != 30 {
		t.Fatalf("mood = %+v", m)
	}
}

func TestChatExpressionChance(t *testing.T) {
	// Draw above the chance keeps the face.
	c := NewClassifier(&seqRand{floats: []float64{0.9}})
	m := Mood{Expression: ExprSleepy}
	c.Apply(&m, NewEvent(EventChatMessage, "viewer", "hi", 0))
	if m.Expression != ExprSleepy || m.Engagement != 3 || m.Energy != 1 {
		t.Fatalf("mood = %+v", m)
	}

	// Draw below the chance picks from the chat set.
	c = NewClassifier(&seqRand{floats: []float64{0.1}, ints: []int{3}})
	c.Apply(&m, NewEvent(EventChatMessage, "viewer", "lol", 0))
	if m.Expression != ExprCatFace {
		t.Fatalf("expression = %s, want cat_face", m.Expression)
	}
}

func TestFollowerAndAlert(t *testing.T) {
	c := NewClassifier(&seqRand{ints: []int{2, 0}})
	m := DefaultMood()
	c.Apply(&m, NewEvent(EventNewFollower, "fan", "", 0))
	if m.Positivity != 68 || m.Engagement != 40 || m.Energy != 55 || m.Expression != ExprLove {
		t.Fatalf("after follow = %+v", m)
	}
	c.Apply(&m, NewEvent(EventAlert, "", "hydrate", 0))
	if m.Engagement != 48 || m.Energy != 60 || m.Expression != ExprSurprised {
		t.Fatalf("after alert = %+v", m)
	}
}

func TestKindsWithoutRulesLeaveMood(t *testing.T) {
	c := NewClassifier(&seqRand{})
	for _, k := range []EventKind{EventBits, EventBan, EventPoll, EventAdBreak, EventUnknown} {
		m := DefaultMood()
		if c.Apply(&m, NewEvent(k, "u", "", 500)) {
			t.Fatalf("%s should have no rule", k)
		}
		if m != DefaultMood() {
			t.Fatalf("%s changed mood: %+v", k, m)
		}
	}
}

func TestObserveRecordsLastEvent(t *testing.T) {
	s := NewState(DefaultMood())
	c := NewClassifier(&seqRand{})
	ev := StreamEvent{Kind: EventUnknown, Type: "hype-train", Username: "x"}
	if _, ok := s.Observe(ev, c); ok {
		t.Fatal("unknown kind matched a rule")
	}
	last := s.LastEvent()
	if last == nil || last.Type != "hype-train" {
		t.Fatalf("last event = %+v", last)
	}
}

func TestDescribeEvent(t *testing.T) {
	cases := []struct {
		ev   StreamEvent
		want string
	}{
		{NewEvent(EventNewFollower, "ann", "", 0), "ann just followed!"},
		{NewEvent(EventNewSubscriber, "bo", "", 0), "bo subscribed at tier 1!"},
		{NewEvent(EventNewSubscriber, "bo", "", 2), "bo subscribed at tier 2!"},
		{NewEvent(EventRaid, "cy", "", 42), "cy raided with 42 viewers!"},
		{NewEvent(EventChatMessage, "di", "hello", 0), "di said: hello"},
		{NewEvent(EventAlert, "", "", 0), "Alert triggered: alert"},
		{NewEvent(EventAlert, "", "stretch break", 0), "Alert triggered: stretch break"},
		{StreamEvent{Kind: EventUnknown, Type: "hype-train", Username: "ed"}, "Event: hype-train from ed"},
	}
	for _, tc := range cases {
		if got := DescribeEvent(tc.ev); got != tc.want {
			t.Errorf("DescribeEvent(%s) = %q, want %q", tc.ev.Type, got, tc.want)
		}
	}
}
