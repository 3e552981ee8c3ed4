// Package denoise removes isolated ink pixels from a classified mask.
package denoise

import (
	"strings"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// Connectivity is the neighbourhood used when counting.
type Connectivity int

const (
	Four  Connectivity = 4
	Eight Connectivity = 8
)

// Policy decides which ink pixels are noise. A pixel with fewer than
// MinNeighbors filled neighbours is cleared, provided its alpha is below
// MaxAlpha. MaxAlpha 0 disables the alpha gate; MinNeighbors 0 disables
// denoising.
type Policy struct {
	Connectivity Connectivity
	MinNeighbors int
	MaxAlpha     uint8
}

// Tight clears ink with fewer than two direct neighbours.
func Tight() Policy {
	return Policy{Connectivity: Four, MinNeighbors: TightMinNeighbors}
}

// Loose clears faint ink almost surrounded by background.
func Loose() Policy {
	return Policy{Connectivity: Eight, MinNeighbors: LooseMinNeighbors, MaxAlpha: LooseMaxAlpha}
}

// Off never clears anything.
func Off() Policy { return Policy{} }

// Enabled reports whether the policy can clear pixels.
func (p Policy) Enabled() bool { return p.MinNeighbors > 0 }

// ParsePolicy accepts tight, loose or off.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tight", "":
		return Tight(), nil
	case "loose":
		return Loose(), nil
	case "off", "none":
		return Off(), nil
	}
	return Policy{}, apperr.Newf(apperr.ConfigInvalid, "unknown denoise policy %q", s)
}

var (
	four  = [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	eight = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

// Denoiser applies a policy. It reuses a scratch plane and is not safe for
// concurrent use.
type Denoiser struct {
	policy  Policy
	scratch []uint8
}

// New creates a denoiser.
func New(p Policy) *Denoiser {
	return &Denoiser{policy: p}
}

// Policy returns the configured policy.
func (d *Denoiser) Policy() Policy { return d.policy }

// Denoise clears noise pixels in m and returns how many were removed.
// Neighbour counts are read from the alpha plane as it was before the pass,
// so the result does not depend on scan order. Border pixels are not
// examined. Denoise never turns background into ink.
func (d *Denoiser) Denoise(m *frame.Mask) int {
	if !d.policy.Enabled() || m.Validate() != nil {
		return 0
	}
	w, h := m.Width(), m.Height()
	if w < 3 || h < 3 {
		return 0
	}

	n := w * h
	if cap(d.scratch) < n {
		d.scratch = make([]uint8, n)
	}
	alpha := d.scratch[:n]
	for i := range alpha {
		alpha[i] = m.Image.Pix[i*frame.BytesPerPixel+3]
	}

	offsets := four
	if d.policy.Connectivity == Eight {
		offsets = eight
	}

	removed := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			a := alpha[i]
			if a == 0 {
				continue
			}
			if d.policy.MaxAlpha > 0 && a >= d.policy.MaxAlpha {
				continue
			}
			filled := 0
			for _, o := range offsets {
				if alpha[(y+o[1])*w+x+o[0]] > 0 {
					filled++
				}
			}
			if filled < d.policy.MinNeighbors {
				m.Clear(i)
				removed++
			}
		}
	}
	return removed
}
