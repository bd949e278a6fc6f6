// Package voice turns companion text into speech through an external synthesis server.
package voice

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when no synthesis backend is configured or reachable.
var ErrUnavailable = errors.New("voice: synthesis unavailable")

// DefaultSampleRate is the output rate of the synthesis model.
const DefaultSampleRate = 24000

// Clip is one synthesized utterance.
type Clip struct {
	Audio      []byte
	SampleRate int
	Duration   time.Duration
}

// Synthesizer converts text to audio. mood is a profile name (see Profiles).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, mood string) (*Clip, error)
	Available() bool
}

// HealthChecker is implemented by synthesizers that can check their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Disabled is the synthesizer used when VOICE_URL is empty.
type Disabled struct{}

func (Disabled) Synthesize(context.Context, string, string) (*Clip, error) {
	return nil, ErrUnavailable
}

func (Disabled) Available() bool { return false }
