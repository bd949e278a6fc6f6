package mind

import (
	"sync"
	"time"
)

// Cooldown enforces a minimum interval since the last successful generation.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewCooldown returns a cooldown of interval. Zero disables it.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

// Ready reports whether the cooldown has elapsed at now.
func (c *Cooldown) Ready(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.IsZero() || now.Sub(c.last) >= c.interval
}

// Mark records a successful generation at now.
func (c *Cooldown) Mark(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = now
}

// Remaining returns how long until Ready, zero if ready.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return 0
	}
	left := c.interval - now.Sub(c.last)
	if left < 0 {
		return 0
	}
	return left
}

// Interval returns the configured window.
func (c *Cooldown) Interval() time.Duration {
	return c.interval
}

// ChatRate counts chat messages in a sliding window.
type ChatRate struct {
	mu     sync.Mutex
	window time.Duration
	times  []time.Time
}

// NewChatRate returns a counter over window (60s when not positive).
func NewChatRate(window time.Duration) *ChatRate {
	if window <= 0 {
		window = time.Minute
	}
	return &ChatRate{window: window, times: make([]time.Time, 0, 64)}
}

// Record notes one message at now.
func (r *ChatRate) Record(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trim(now)
	r.times = append(r.times, now)
}

// PerMinute returns messages per minute over the window ending at now.
func (r *ChatRate) PerMinute(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trim(now)
	return float64(len(r.times)) * float64(time.Minute) / float64(r.window)
}

// Window returns the sliding window length.
func (r *ChatRate) Window() time.Duration {
	return r.window
}

func (r *ChatRate) trim(now time.Time) {
	cut := now.Add(-r.window)
	i := 0
	for i < len(r.times) && !r.times[i].After(cut) {
		i++
	}
	if i > 0 {
		r.times = append(r.times[:0], r.times[i:]...)
	}
}
