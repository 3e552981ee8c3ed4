package calibrate

import (
	"log/slog"
	"sync"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// State of a calibration session.
type State int

const (
	Idle State = iota
	AwaitingSample
	Applying
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSample:
		return "awaiting_sample"
	case Applying:
		return "applying"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Session is the calibration state machine:
//
//	Idle -> AwaitingSample -> Applying -> Idle
//	Idle -> AwaitingSample -> Cancelled -> Idle
//
// It is driven by Begin, Sample and Cancel and knows nothing about UI.
type Session struct {
	store *signature.Store
	opts  Options

	mu       sync.Mutex
	state    State
	label    signature.Label
	onChange func(State, signature.Label)
}

// NewSession creates an idle session writing to store.
func NewSession(store *signature.Store, opts Options) *Session {
	return &Session{store: store, opts: opts}
}

// OnChange registers a hook called on every state transition. The hook
// runs with the session lock held and must not call back into the session.
func (s *Session) OnChange(fn func(State, signature.Label)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the label awaiting a sample.
func (s *Session) Pending() (signature.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label, s.state == AwaitingSample
}

func (s *Session) transition(to State) {
	s.state = to
	if s.onChange != nil {
		s.onChange(to, s.label)
	}
}

// Begin arms calibration for label. signature.Auto infers green or blue from
// the sample and leaves only that signature active.
func (s *Session) Begin(label signature.Label) error {
	if label != signature.Auto {
		if _, ok := s.store.Snapshot().Get(label); !ok {
			return apperr.Newf(apperr.UnknownLabel, "no signature named %q", label)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return apperr.Newf(apperr.CalibrationBusy, "calibration for %q already %s", s.label, s.state)
	}
	s.label = label
	s.transition(AwaitingSample)
	return nil
}

// Cancel aborts a pending calibration without side effects. A sample that has
// already been taken cannot be cancelled.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case AwaitingSample:
		s.transition(Cancelled)
		s.label = ""
		s.transition(Idle)
		return nil
	case Applying:
		return apperr.New(apperr.CalibrationBusy, "sample already taken")
	default:
		return apperr.New(apperr.CalibrationIdle, "no calibration pending")
	}
}

// Sample takes the pending sample at (x, y) in buffer space and publishes
// the resulting signature. Sampling and the write happen inside one
// exclusive store update. A rejected frame keeps the session armed.
func (s *Session) Sample(buf *frame.Buffer, x, y int) (signature.Signature, error) {
	s.mu.Lock()
	if s.state != AwaitingSample {
		state := s.state
		s.mu.Unlock()
		if state == Applying {
			return signature.Signature{}, apperr.New(apperr.CalibrationBusy, "sample already in progress")
		}
		return signature.Signature{}, apperr.New(apperr.CalibrationIdle, "no calibration pending")
	}
	label := s.label
	s.transition(Applying)
	s.mu.Unlock()

	var (
		sig    signature.Signature
		sample Sample
	)
	_, err := s.store.Update(func(cur *signature.Set) (*signature.Set, error) {
		var err error
		sig, sample, err = Calibrate(buf, label, x, y, s.opts)
		if err != nil {
			return nil, err
		}
		next := cur.With(sig)
		if label == signature.Auto {
			next = next.Only(sig.Label)
		}
		return next, nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.transition(AwaitingSample)
		return signature.Signature{}, err
	}
	s.label = ""
	s.transition(Idle)

	slog.Info("calibrated",
		"label", sig.Label,
		"reference", sig.Reference.String(),
		"tolerance", sig.Tolerance,
		"threshold", sig.Threshold,
		"x", sample.Center.X, "y", sample.Center.Y,
		"spread", sample.Spread)
	return sig, nil
}
