package mind

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Decay floors and thresholds. The floors are stricter than the [0,100] clamp.
const (
	DecayReference   = 30 * time.Second
	MinDecayElapsed  = time.Second
	EnergyFloor      = 10.0
	EngagementFloor  = 5.0
	SleepyEngagement = 15.0
	SleepyEnergy     = 25.0
	IdleEngagement   = 20.0
)

// ApplyDecay relaxes m for elapsed time at rate points per 30s. Returns false
// when elapsed is too short to count as a tick.
func ApplyDecay(m *Mood, rate float64, elapsed time.Duration) bool {
	if elapsed < MinDecayElapsed {
		return false
	}
	decay := rate * (elapsed.Seconds() / DecayReference.Seconds())
	m.Energy = max(EnergyFloor, m.Energy-decay)
	m.Engagement = max(EngagementFloor, m.Engagement-decay/2)

	switch {
	case m.Engagement < SleepyEngagement && m.Energy < SleepyEnergy:
		m.Expression = ExprSleepy
	case m.Engagement < IdleEngagement:
		m.Expression = ExprIdle
	}
	m.Clamp()
	return true
}

// DecayScheduler periodically relaxes the mood of a State.
type DecayScheduler struct {
	state    *State
	interval time.Duration
	rate     float64
	log      zerolog.Logger

	mu      sync.Mutex
	last    time.Time
	onDecay func(Mood) // called after every applied tick
}

// NewDecayScheduler creates a scheduler ticking every interval.
func NewDecayScheduler(state *State, interval time.Duration, rate float64, log zerolog.Logger) *DecayScheduler {
	if interval <= 0 {
		interval = DecayReference
	}
	return &DecayScheduler{
		state:    state,
		interval: interval,
		rate:     rate,
		log:      log,
		last:     time.Now(),
	}
}

// SetOnDecay sets the callback run after an applied tick.
func (d *DecayScheduler) SetOnDecay(f func(Mood)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDecay = f
}

// Run ticks until ctx is done.
func (d *DecayScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			d.Tick(now)
		}
	}
}

// Tick decays by the time elapsed since the previous applied tick.
func (d *DecayScheduler) Tick(now time.Time) bool {
	d.mu.Lock()
	elapsed := now.Sub(d.last)
	if elapsed < MinDecayElapsed {
		d.mu.Unlock()
		return false
	}
	d.last = now
	cb := d.onDecay
	d.mu.Unlock()

	m := d.state.Mutate(func(m *Mood) {
		ApplyDecay(m, d.rate, elapsed)
	})
	d.log.Debug().
		Float64("elapsed_s", elapsed.Seconds()).
		Float64("energy", round1(m.Energy)).
		Float64("engagement", round1(m.Engagement)).
		Str("expression", string(m.Expression)).
		Msg("mood decayed")
	if cb != nil {
		cb(m)
	}
	return true
}
