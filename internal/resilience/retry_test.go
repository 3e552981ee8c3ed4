package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return apperr.New(apperr.SourceUnavailable, "camera busy")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsRetries(t *testing.T) {
	calls := 0
	retryErr := apperr.New(apperr.SourceUnavailable, "no device")

	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return retryErr
	})

	if !errors.Is(err, retryErr) {
		t.Errorf("Retry() = %v, want %v", err, retryErr)
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryNonRetryableError(t *testing.T) {
	calls := 0
	bad := apperr.New(apperr.ConfigInvalid, "ffmpeg source needs an input")

	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return bad
	})

	if !errors.Is(err, bad) {
		t.Errorf("Retry() = %v, want %v", err, bad)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: time.Hour, MaxDelay: time.Hour}
	calls := 0

	err := Retry(ctx, cfg, func() error {
		calls++
		cancel()
		return apperr.New(apperr.SourceUnavailable, "gone")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryCustomPredicate(t *testing.T) {
	cfg := fastRetry(2)
	cfg.IsRetryable = func(error) bool { return true }
	calls := 0

	_ = Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("plain")
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, JitterFactor: 0.2}

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second} {
		got := backoffDelay(cfg, attempt)
		lo, hi := time.Duration(float64(base)*0.9), time.Duration(float64(base)*1.1)
		if got < lo || got > hi {
			t.Errorf("backoffDelay(%d) = %v, want within [%v, %v]", attempt, got, lo, hi)
		}
	}
}

func TestRetryConfigDefaults(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()

	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("BaseDelay = %v, want %v", cfg.BaseDelay, DefaultBaseDelay)
	}
	if cfg.IsRetryable == nil {
		t.Fatal("IsRetryable = nil")
	}
	if cfg.IsRetryable(apperr.New(apperr.InvalidFrame, "x")) {
		t.Error("InvalidFrame should not be retryable")
	}
}
