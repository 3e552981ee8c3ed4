package capture

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/resilience"
)

// Opener starts a fresh source.
type Opener func(ctx context.Context) (Source, error)

// SuperviseOptions parameterises a Supervisor.
type SuperviseOptions struct {
	// MaxRestarts bounds reopen attempts after the first open; 0 is unlimited.
	MaxRestarts   int
	// HealthyFrames is how many frames a session must deliver before it
	// counts as a success for the breaker.
	HealthyFrames int
	Retry         resilience.RetryConfig
	Breaker       resilience.BreakerConfig
}

// DefaultSuperviseOptions returns unlimited restarts with the default
// retry and breaker policies.
func DefaultSuperviseOptions() SuperviseOptions {
	return SuperviseOptions{
		HealthyFrames: DefaultHealthyFrames,
		Retry:         resilience.DefaultRetryConfig(),
		Breaker:       resilience.DefaultBreakerConfig(),
	}
}

// Supervisor is a Source that reopens its underlying source when it
// closes or becomes unavailable. Opens are retried with backoff; sessions
// that die before delivering HealthyFrames trip the breaker, which then
// holds off reopening for its cool-down.
type Supervisor struct {
	open    Opener
	opts    SuperviseOptions
	breaker *resilience.Breaker

	cur      Source
	frames   int
	opened   bool
	restarts atomic.Int64
}

// Supervise wraps open. The first source is opened lazily by Next.
func Supervise(open Opener, opts SuperviseOptions) *Supervisor {
	if opts.HealthyFrames <= 0 {
		opts.HealthyFrames = DefaultHealthyFrames
	}
	return &Supervisor{open: open, opts: opts, breaker: resilience.NewBreaker(opts.Breaker)}
}

// Restarts returns how many times the source has been reopened.
func (s *Supervisor) Restarts() int64 { return s.restarts.Load() }

// BreakerState returns the state of the reopen breaker.
func (s *Supervisor) BreakerState() resilience.State { return s.breaker.State() }

// Next returns the next frame, reopening the source as needed.
func (s *Supervisor) Next(ctx context.Context) (*frame.Buffer, error) {
	for {
		if s.cur == nil {
			if err := s.reopen(ctx); err != nil {
				return nil, err
			}
		}

		buf, err := s.cur.Next(ctx)
		if err == nil {
			s.frames++
			if s.frames == s.opts.HealthyFrames {
				s.breaker.Success()
			}
			return buf, nil
		}
		if ctx.Err() != nil || !restartable(err) {
			return nil, err
		}

		slog.Warn("capture source ended", "frames", s.frames, "error", err)
		_ = s.cur.Close()
		s.cur = nil
		if s.frames < s.opts.HealthyFrames {
			s.breaker.Failure()
		}
		if s.opts.MaxRestarts > 0 && s.restarts.Load() >= int64(s.opts.MaxRestarts) {
			return nil, apperr.Wrapf(err, apperr.SourceClosed, "source gave up after %d restarts", s.opts.MaxRestarts)
		}
	}
}

func (s *Supervisor) reopen(ctx context.Context) error {
	for s.breaker.Allow() != nil {
		wait := s.breaker.RetryAfter()
		slog.Info("capture breaker open, waiting", "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	var src Source
	err := resilience.Retry(ctx, s.opts.Retry, func() error {
		var err error
		src, err = s.open(ctx)
		return err
	})
	if err != nil {
		s.breaker.Failure()
		return err
	}

	if s.opened {
		s.restarts.Add(1)
		slog.Info("capture source reopened", "restarts", s.restarts.Load())
	}
	s.opened = true
	s.cur, s.frames = src, 0
	return nil
}

// Close closes the current source, if any.
func (s *Supervisor) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}

func restartable(err error) bool {
	return apperr.IsCode(err, apperr.SourceClosed) || apperr.IsCode(err, apperr.SourceUnavailable)
}
