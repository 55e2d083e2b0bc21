// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Factor: 2}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if res.Err != nil {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls %d)", res.Attempts, calls)
	}
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return errors.New("attempt failed")
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if res.Err == nil || res.Err.Error() != "attempt failed" {
		t.Fatalf("expected last error, got %v", res.Err)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	sentinel := errors.New("bad request")
	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, sentinel) }

	calls := 0
	res := Do(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})
	if calls != 1 || res.Attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	if !errors.Is(res.Err, sentinel) {
		t.Fatalf("expected sentinel, got %v", res.Err)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(4), func() error {
		calls++
		return Permanent(errors.New("nope"))
	})
	if calls != 1 || !IsPermanent(res.Err) {
		t.Fatalf("expected one permanent failure, got calls=%d err=%v", calls, res.Err)
	}
}

func TestDoHonoursCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := Do(ctx, cfg, func() error {
		calls++
		return errors.New("down")
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
	if res.Err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestDoWithValue(t *testing.T) {
	calls := 0
	v, res := DoWithValue(context.Background(), fastConfig(2), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("first")
		}
		return "ok", nil
	})
	if res.Err != nil || v != "ok" {
		t.Fatalf("unexpected result %q %v", v, res.Err)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{7, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(tc.attempt, time.Second, 30*time.Second, 2); got != tc.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
