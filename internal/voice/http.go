package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/stream-companion/pkg/util"
)

const maxClipBytes = 32 << 20

// HTTPSynthesizer posts text to a synthesis server and expects WAV back.
type HTTPSynthesizer struct {
	HTTPClient *http.Client
	BaseURL    string
	log        zerolog.Logger
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	SampleRate int    `json:"sample_rate"`
	Profile
}

func NewHTTPSynthesizer(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPSynthesizer{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

func (s *HTTPSynthesizer) Available() bool {
	return s.BaseURL != ""
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, mood string) (*Clip, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("voice: empty text")
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:       text,
		SampleRate: DefaultSampleRate,
		Profile:    ProfileFor(mood),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	start := time.Now()
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return nil, fmt.Errorf("voice read: %w", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("voice http %d: %s", resp.StatusCode, util.Truncate(string(audio), 200))
	}

	rate, dur, err := wavInfo(audio)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("mood", mood).
		Int("bytes", len(audio)).
		Dur("took", time.Since(start)).
		Float64("duration_s", dur.Seconds()).
		Msg("clip synthesized")
	return &Clip{Audio: audio, SampleRate: rate, Duration: dur}, nil
}

// Health asks the server whether its model is loaded.
func (s *HTTPSynthesizer) Health(ctx context.Context) error {
	if !s.Available() {
		return ErrUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
