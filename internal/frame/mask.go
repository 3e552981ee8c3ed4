package frame

import (
	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Background is the class value of a non-ink pixel.
const Background uint8 = 0

// Mask is a classified output frame: the ink-only image plus a class plane.
// Class[i] is 0 for background or k+1 for Labels[k].
type Mask struct {
	Image  *Buffer
	Class  []uint8
	Labels []signature.Label
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	img := New(width, height)
	return &Mask{Image: img, Class: make([]uint8, img.Width*img.Height)}
}

// Width of the mask.
func (m *Mask) Width() int { return m.Image.Width }

// Height of the mask.
func (m *Mask) Height() int { return m.Image.Height }

// Validate checks the image and the class plane agree.
func (m *Mask) Validate() error {
	if m == nil {
		return (*Buffer)(nil).Validate()
	}
	if err := m.Image.Validate(); err != nil {
		return err
	}
	if len(m.Class) != m.Image.Width*m.Image.Height {
		return apperr.Newf(apperr.InvalidFrame, "class plane has %d entries, want %d", len(m.Class), m.Image.Width*m.Image.Height)
	}
	return nil
}

// Reset clears every pixel to background and installs the label table.
func (m *Mask) Reset(labels []signature.Label) {
	clear(m.Image.Pix)
	clear(m.Class)
	m.Labels = labels
}

// LabelAt returns the label of pixel index i.
func (m *Mask) LabelAt(i int) (signature.Label, bool) {
	c := m.Class[i]
	if c == Background || int(c) > len(m.Labels) {
		return "", false
	}
	return m.Labels[c-1], true
}

// Clear turns pixel index i into background.
func (m *Mask) Clear(i int) {
	m.Class[i] = Background
	p := m.Image.Pix[i*BytesPerPixel : i*BytesPerPixel+4 : i*BytesPerPixel+4]
	p[0], p[1], p[2], p[3] = 0, 0, 0, 0
}

// Counts returns the number of ink pixels per label.
func (m *Mask) Counts() map[signature.Label]int {
	counts := make(map[signature.Label]int, len(m.Labels))
	for i := range m.Class {
		if l, ok := m.LabelAt(i); ok {
			counts[l]++
		}
	}
	return counts
}
