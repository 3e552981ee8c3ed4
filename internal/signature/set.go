package signature

import (
	"slices"
	"strconv"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/syncx"
)

// Set is an immutable, ordered collection of signatures keyed by label.
// Order is declaration order; it is the fallback precedence.
type Set struct {
	sigs []Signature
}

// NewSet builds a set. A later signature with a repeated label replaces
// the earlier one in place.
func NewSet(sigs ...Signature) *Set {
	s := &Set{sigs: make([]Signature, 0, len(sigs))}
	for _, sig := range sigs {
		if i := s.index(sig.Label); i >= 0 {
			s.sigs[i] = sig
			continue
		}
		s.sigs = append(s.sigs, sig)
	}
	return s
}

// DefaultSet returns a set of the default signatures.
func DefaultSet() *Set {
	return NewSet(Defaults()...)
}

func (s *Set) index(l Label) int {
	for i := range s.sigs {
		if s.sigs[i].Label == l {
			return i
		}
	}
	return -1
}

// Len returns the number of signatures.
func (s *Set) Len() int { return len(s.sigs) }

// At returns the i-th signature in declaration order.
func (s *Set) At(i int) Signature { return s.sigs[i] }

// Get returns the signature for l.
func (s *Set) Get(l Label) (Signature, bool) {
	if i := s.index(l); i >= 0 {
		return s.sigs[i], true
	}
	return Signature{}, false
}

// Index returns the declaration index of l, or -1.
func (s *Set) Index(l Label) int { return s.index(l) }

// Labels returns every label in declaration order.
func (s *Set) Labels() []Label {
	out := make([]Label, len(s.sigs))
	for i := range s.sigs {
		out[i] = s.sigs[i].Label
	}
	return out
}

// All returns a copy of every signature.
func (s *Set) All() []Signature {
	return slices.Clone(s.sigs)
}

// Active returns the active signatures in declaration order.
func (s *Set) Active() []Signature {
	var out []Signature
	for _, sig := range s.sigs {
		if sig.Active {
			out = append(out, sig)
		}
	}
	return out
}

// With returns a new set where sig replaces the signature of the same label
// wholesale, or is appended when the label is new.
func (s *Set) With(sig Signature) *Set {
	next := &Set{sigs: slices.Clone(s.sigs)}
	if i := next.index(sig.Label); i >= 0 {
		next.sigs[i] = sig
	} else {
		next.sigs = append(next.sigs, sig)
	}
	return next
}

// Only returns a new set where every signature other than l is inactive.
func (s *Set) Only(l Label) *Set {
	next := &Set{sigs: slices.Clone(s.sigs)}
	for i := range next.sigs {
		if next.sigs[i].Label != l {
			next.sigs[i].Active = false
		}
	}
	return next
}

// Store owns the process-wide signature set. Readers take snapshots;
// calibration publishes a whole new set.
type Store struct {
	guard *syncx.Guard[*Set]
}

// NewStore creates a store holding initial, or the defaults when nil.
func NewStore(initial *Set) *Store {
	if initial == nil {
		initial = DefaultSet()
	}
	return &Store{guard: syncx.NewGuard(initial)}
}

// Snapshot returns the current set. The set is never mutated after publication.
func (st *Store) Snapshot() *Set {
	return st.guard.Load()
}

// Replace publishes a set where sig replaces its label's signature.
func (st *Store) Replace(sig Signature) (*Set, error) {
	return st.Update(func(cur *Set) (*Set, error) {
		return cur.With(sig), nil
	})
}

// Update runs fn as the single writer. The returned set is validated before
// it is published.
func (st *Store) Update(fn func(*Set) (*Set, error)) (*Set, error) {
	return st.guard.Update(func(cur *Set) (*Set, error) {
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next.Len() > MaxLabels {
			return nil, apperr.Newf(apperr.InvalidArgument, "set has %d signatures, at most %d allowed", next.Len(), MaxLabels)
		}
		for _, sig := range next.sigs {
			if !sig.Valid() {
				return nil, apperr.Newf(apperr.InvalidArgument, "invalid signature %q", sig.Label).
					WithMetadata("tolerance", strconv.FormatFloat(sig.Tolerance, 'g', -1, 64)).
					WithMetadata("threshold", strconv.FormatFloat(sig.Threshold, 'g', -1, 64))
			}
		}
		return next, nil
	})
}
