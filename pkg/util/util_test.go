package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"
)

func TestParallelRunsEveryInput(t *testing.T) {
	var sum atomic.Int64
	err := Parallel(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		sum.Add(int64(n))
		return nil
	})
	if err != nil {
		t.Fatalf("Parallel: %v", err)
	}
	if sum.Load() != 15 {
		t.Fatalf("sum = %d, want 15", sum.Load())
	}
}

func TestParallelJoinsErrors(t *testing.T) {
	errOdd := errors.New("odd")
	var calls atomic.Int32
	err := Parallel(context.Background(), []int{1, 2, 3}, 3, func(_ context.Context, n int) error {
		calls.Add(1)
		if n%2 == 1 {
			return errOdd
		}
		return nil
	})
	if !errors.Is(err, errOdd) {
		t.Fatalf("err = %v, want errOdd", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, a failure must not stop the others", calls.Load())
	}
}

func TestFormatUptime(t *testing.T) {
	cases := map[time.Duration]string{
		0:                             "0s",
		42 * time.Second:              "42s",
		3*time.Minute + 5*time.Second: "3m 05s",
		2*time.Hour + 4*time.Minute:   "2h 04m 00s",
		26*time.Hour + 61*time.Second: "1d 2h 01m 01s",
		-time.Minute:                  "0s",
	}
	for d, want := range cases {
		if got := FormatUptime(d); got != want {
			t.Errorf("FormatUptime(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"héllo wörld", 4, "héll..."},
		{"こんにちは", 2, "こん..."},
		{"🙂🙂🙂", 1, "🙂..."},
		{"abc", 0, "..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) split a rune: %q", tt.in, tt.max, got)
		}
	}
}
