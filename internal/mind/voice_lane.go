package mind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/internal/voice"
)

var (
	errSuperseded = errors.New("superseded by a newer voice job")
	errLaneClosed = errors.New("voice lane closed")
)

// voiceJob is the task handle of one voice call. id ties it to its attempt.
type voiceJob struct {
	id     uint64
	text   string
	mood   string
	textAt time.Time
}

// VoiceLane runs one synthesis at a time and holds at most one pending job.
// A newer submission replaces the pending one, which is finished as superseded.
type VoiceLane struct {
	synth   voice.Synthesizer
	timeout time.Duration
	done    func(voiceJob, *voice.Clip, error)
	log     zerolog.Logger

	mu      sync.Mutex
	pending *voiceJob
	busy    bool
	closed  bool
	wake    chan struct{}
}

func newVoiceLane(synth voice.Synthesizer, timeout time.Duration, log zerolog.Logger, done func(voiceJob, *voice.Clip, error)) *VoiceLane {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &VoiceLane{
		synth:   synth,
		timeout: timeout,
		done:    done,
		log:     log,
		wake:    make(chan struct{}, 1),
	}
}

func (l *VoiceLane) submit(j voiceJob) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.finish(j, nil, errLaneClosed)
		return
	}
	old := l.pending
	l.pending = &j
	l.mu.Unlock()

	if old != nil {
		l.log.Debug().Uint64("attempt", old.id).Uint64("by", j.id).Msg("pending voice job replaced")
		l.finish(*old, nil, errSuperseded)
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run processes jobs until ctx is done. The pending job, if any, is finished
// with the context error on exit.
func (l *VoiceLane) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.close(ctx.Err())
			return
		case <-l.wake:
		}
		for {
			j, ok := l.take()
			if !ok {
				break
			}
			clip, err := l.synthesize(ctx, j)
			l.mu.Lock()
			l.busy = false
			l.mu.Unlock()
			l.finish(j, clip, err)
		}
	}
}

func (l *VoiceLane) take() (voiceJob, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return voiceJob{}, false
	}
	j := *l.pending
	l.pending = nil
	l.busy = true
	return j, true
}

func (l *VoiceLane) close(cause error) {
	l.mu.Lock()
	l.closed = true
	old := l.pending
	l.pending = nil
	l.mu.Unlock()
	if old != nil {
		l.finish(*old, nil, cause)
	}
}

func (l *VoiceLane) synthesize(ctx context.Context, j voiceJob) (clip *voice.Clip, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("synthesizer panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	start := time.Now()
	clip, err = l.synth.Synthesize(ctx, j.text, j.mood)
	l.log.Debug().Uint64("attempt", j.id).Dur("took", time.Since(start)).Err(err).Msg("voice call returned")
	return clip, err
}

func (l *VoiceLane) finish(j voiceJob, clip *voice.Clip, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Uint64("attempt", j.id).Msg("voice completion panicked")
		}
	}()
	l.done(j, clip, err)
}

// state reports whether a call is running and whether a job waits.
func (l *VoiceLane) state() (busy, pending bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy, l.pending != nil
}
