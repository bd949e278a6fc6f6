package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestRetryUntilSuccess(t *testing.T) {
	calls := 0
	err := WithRetryConfig(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	}, nil, fastConfig())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	calls := 0
	base := errors.New("bad handshake")
	err := WithRetryConfig(context.Background(), func(context.Context) error {
		calls++
		return &FatalError{Err: base}
	}, nil, fastConfig())
	if !errors.Is(err, base) || calls != 1 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestRetryMaxAttempts(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 4
	calls := 0
	err := WithRetryConfig(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: 503}
	}, nil, cfg)
	if err == nil || calls != 4 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestRetryUnlimitedHonoursContext(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = Unlimited
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := WithRetryConfig(ctx, func(context.Context) error { return errors.New("down") }, nil, cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestAdaptiveLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 2, 0.5)
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 2 {
		t.Fatalf("after failure limit = %v, want 2", got)
	}
	lim.RateLimited()
	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 1 {
		t.Fatalf("limit fell below min: %v", got)
	}
}

func TestClassifiers(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), &StatusError{Code: 429})
	if !isRateLimitError(wrapped) {
		t.Fatal("429 not detected through wrapping")
	}
	if !DefaultClassifier(&StatusError{Code: 502}) {
		t.Fatal("502 should slow the limiter")
	}
	if DefaultClassifier(errors.New("plain")) {
		t.Fatal("plain error should not slow the limiter")
	}
}
