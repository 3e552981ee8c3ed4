package resilience

import (
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func breaker(cfg BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(cfg)
	b.now = c.now
	return b, c
}

func TestBreakerInitialState(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	if b.State() != Closed {
		t.Errorf("initial state = %v, want Closed", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() = %v, want nil", err)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := breaker(BreakerConfig{Threshold: 3, ResetTimeout: time.Hour})

	b.Failure()
	b.Failure()
	if b.State() != Closed {
		t.Fatalf("state = %v after 2 failures, want Closed", b.State())
	}
	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
	if err := b.Allow(); err != ErrOpen {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
}

func TestBreakerRetryAfter(t *testing.T) {
	b, c := breaker(BreakerConfig{Threshold: 1, ResetTimeout: 10 * time.Second})
	if got := b.RetryAfter(); got != 0 {
		t.Errorf("RetryAfter() closed = %v, want 0", got)
	}

	b.Failure()
	c.advance(4 * time.Second)

	if got := b.RetryAfter(); got != 6*time.Second {
		t.Errorf("RetryAfter() = %v, want 6s", got)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, c := breaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 2})
	b.Failure()
	c.advance(time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen", b.State())
	}

	b.Success()
	if b.State() != HalfOpen {
		t.Errorf("state = %v after one probe, want HalfOpen", b.State())
	}
	b.Success()
	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, c := breaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Second})
	b.Failure()
	c.advance(time.Second)
	_ = b.Allow()

	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	b, _ := breaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Hour})
	b.Failure()
	b.Reset()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerHook(t *testing.T) {
	var got []State
	b, c := breaker(BreakerConfig{Threshold: 1, ResetTimeout: time.Second})
	b.WithHook(func(_, to State) { got = append(got, to) })

	b.Failure()
	c.advance(time.Second)
	_ = b.Allow()
	b.Success()

	want := []State{Open, HalfOpen, Closed}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	b, _ := breaker(BreakerConfig{Threshold: 3, ResetTimeout: time.Hour})

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 100, ResetTimeout: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}()
	}
	wg.Wait()
	_ = b.State()
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestBreakerConfigDefaults(t *testing.T) {
	cfg := BreakerConfig{}.withDefaults()

	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", cfg.Threshold, DefaultThreshold)
	}
	if cfg.ResetTimeout != DefaultResetTimeout {
		t.Errorf("ResetTimeout = %v, want %v", cfg.ResetTimeout, DefaultResetTimeout)
	}
	if cfg.HalfOpenSuccesses != DefaultHalfOpenSuccesses {
		t.Errorf("HalfOpenSuccesses = %d, want %d", cfg.HalfOpenSuccesses, DefaultHalfOpenSuccesses)
	}
}
