package mind

import (
	"sync"
	"testing"
	"time"
)

func TestIssueIsMonotonic(t *testing.T) {
	s := NewState(DefaultMood())
	var wg sync.WaitGroup
	ids := make(chan uint64, 400)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ids <- s.Issue()
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[uint64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d issued twice", id)
		}
		seen[id] = true
	}
	if s.Sequence() != 400 {
		t.Fatalf("sequence = %d, want 400", s.Sequence())
	}
}

// An older attempt finishing its voice call after a newer one was issued
// must never touch the visible state.
func TestStaleVoiceNeverApplied(t *testing.T) {
	s := NewState(DefaultMood())
	for i := 0; i < 4; i++ {
		s.Issue()
	}
	five := s.Issue()
	textAt := time.Now()
	if !s.BeginSpeaking(five, "reaction five") {
		t.Fatal("attempt 5 should own the state")
	}
	six := s.Issue()
	if five != 5 || six != 6 {
		t.Fatalf("ids = %d, %d", five, six)
	}
	if !s.BeginSpeaking(six, "reaction six") {
		t.Fatal("attempt 6 should own the state")
	}

	if got := s.ResolveVoice(five, textAt, time.Minute, 3*time.Second, true); got != VoiceStale {
		t.Fatalf("attempt 5 voice = %s, want stale", got)
	}
	if s.FinishSpeaking(five) {
		t.Fatal("attempt 5 must not reset attempt 6's speaking flag")
	}
	snap := s.Snapshot()
	if snap.VoiceAudioReady || snap.CurrentResponse != "reaction six" || !snap.IsSpeaking {
		t.Fatalf("snapshot after stale voice = %+v", snap)
	}

	if got := s.ResolveVoice(six, time.Now(), time.Minute, 2*time.Second, true); got != VoiceApplied {
		t.Fatalf("attempt 6 voice = %s", got)
	}
	snap = s.Snapshot()
	if !snap.VoiceAudioReady || snap.VoiceDuration != 2 {
		t.Fatalf("snapshot after voice = %+v", snap)
	}
	if !s.FinishSpeaking(six) {
		t.Fatal("attempt 6 owns the reset")
	}
	snap = s.Snapshot()
	if snap.IsSpeaking || snap.VoiceAudioReady {
		t.Fatalf("terminal reset left %+v", snap)
	}
}

func TestStaleTextRefused(t *testing.T) {
	s := NewState(DefaultMood())
	one := s.Issue()
	s.Issue()
	if s.BeginSpeaking(one, "old news") {
		t.Fatal("text of a superseded attempt must be refused")
	}
	if s.Snapshot().CurrentResponse != "" {
		t.Fatal("refused text leaked into state")
	}
}

func TestVoiceTTL(t *testing.T) {
	s := NewState(DefaultMood())
	now := time.Now()
	s.now = func() time.Time { return now }
	id := s.Issue()
	s.BeginSpeaking(id, "slow voice")

	if got := s.ResolveVoice(id, now.Add(-120*time.Second), 120*time.Second, time.Second, true); got != VoiceExpired {
		t.Fatalf("outcome = %s, want expired", got)
	}
	if got := s.ResolveVoice(id, now.Add(-119*time.Second), 120*time.Second, time.Second, true); got != VoiceApplied {
		t.Fatalf("outcome = %s, want applied", got)
	}
}

func TestFailedVoiceStillResets(t *testing.T) {
	s := NewState(DefaultMood())
	id := s.Issue()
	s.BeginSpeaking(id, "no audio")
	if got := s.ResolveVoice(id, time.Now(), time.Minute, 0, false); got != VoiceFailed {
		t.Fatalf("outcome = %s", got)
	}
	if !s.FinishSpeaking(id) || s.Snapshot().IsSpeaking {
		t.Fatal("failed voice must still end speaking")
	}
}

func TestSnapshotRounds(t *testing.T) {
	s := NewState(Mood{Energy: 33.333, Positivity: 66.666, Engagement: 10.05, Expression: ExprLove})
	snap := s.Snapshot()
	if snap.Mood.Energy != 33.3 || snap.Mood.Positivity != 66.7 {
		t.Fatalf("snapshot mood = %+v", snap.Mood)
	}
	if s.Mood().Energy != 33.333 {
		t.Fatal("snapshot rounding must not touch the stored mood")
	}
}

func TestSnapshotResponseIDFollowsOwner(t *testing.T) {
	s := NewState(DefaultMood())
	one := s.Issue()
	s.BeginSpeaking(one, "first words")
	s.Issue()

	snap := s.Snapshot()
	if snap.EventID != 2 || snap.ResponseID != one || snap.CurrentResponse != "first words" {
		t.Fatalf("snapshot with pending attempt = %+v", snap)
	}
}
