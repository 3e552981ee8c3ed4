package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	Closed   State = iota // sessions allowed
	Open                  // cooling down
	HalfOpen              // probing with one session
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned by Allow while the breaker cools down.
var ErrOpen = errors.New("circuit breaker open")

// Breaker defaults.
const (
	DefaultThreshold         = 3
	DefaultResetTimeout      = 10 * time.Second
	DefaultHalfOpenSuccesses = 1
)

// BreakerConfig holds breaker settings.
type BreakerConfig struct {
	Threshold         int           // consecutive failures before opening
	ResetTimeout      time.Duration // cool-down before a probe
	HalfOpenSuccesses int           // probe successes needed to close
}

// DefaultBreakerConfig returns the capture supervisor's settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}

// Breaker is a circuit breaker. It is safe for concurrent use.
type Breaker struct {
	cfg      BreakerConfig
	now      func() time.Time
	onChange func(from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// WithHook registers a state change callback. It runs with the breaker
// locked and must not call back into it.
func (b *Breaker) WithHook(fn func(from, to State)) *Breaker {
	b.onChange = fn
	return b
}

// Allow returns nil when a session may start, ErrOpen otherwise.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		b.transition(HalfOpen)
	}
	return nil
}

// RetryAfter returns how long until an open breaker will probe.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return 0
	}
	return max(0, b.cfg.ResetTimeout-b.now().Sub(b.lastFailure))
}

// Success records a healthy session.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccesses {
			b.transition(Closed)
		}
	case Closed:
		b.failures = 0
	}
}

// Failure records a failed session.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()
	b.failures++
	switch b.state {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.transition(Open)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(Closed)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	switch to {
	case Closed:
		b.failures = 0
		slog.Info("capture breaker closed")
	case Open:
		slog.Warn("capture breaker opened", "failures", b.failures, "cooldown", b.cfg.ResetTimeout)
	case HalfOpen:
		slog.Info("capture breaker half-open")
	}
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
