package denoise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

func ink(m *frame.Mask, x, y int, alpha uint8) {
	m.Image.Set(x, y, 0, 255, 0, alpha)
	m.Class[y*m.Width()+x] = 1
}

func newMask(w, h int) *frame.Mask {
	m := frame.NewMask(w, h)
	m.Labels = []signature.Label{signature.Green}
	return m
}

// sparse has isolated dots and a solid 3x3 block.
func sparse() *frame.Mask {
	m := newMask(12, 12)
	ink(m, 2, 2, 220)
	ink(m, 5, 2, 220)
	ink(m, 2, 9, 150)
	for y := 6; y < 9; y++ {
		for x := 6; x < 9; x++ {
			ink(m, x, y, 220)
		}
	}
	return m
}

func inkSet(m *frame.Mask) map[int]bool {
	out := map[int]bool{}
	for i := range m.Class {
		if m.Image.Pix[i*4+3] > 0 {
			out[i] = true
		}
	}
	return out
}

func TestTightRemovesIsolated(t *testing.T) {
	m := sparse()
	removed := New(Tight()).Denoise(m)

	assert.Equal(t, 3, removed)
	assert.Equal(t, 9, m.Counts()[signature.Green])
	assert.Equal(t, frame.Background, m.Class[2*12+2])
	assert.Equal(t, []uint8{0, 0, 0, 0}, m.Image.Pix[(2*12+2)*4:(2*12+2)*4+4])
}

func TestLooseKeepsOpaqueAndBlocks(t *testing.T) {
	m := sparse()
	removed := New(Loose()).Denoise(m)

	// Only the faint dot falls under the alpha gate.
	assert.Equal(t, 1, removed)
	assert.Equal(t, 11, m.Counts()[signature.Green])
	assert.Equal(t, frame.Background, m.Class[9*12+2])
}

func TestDenoiseNeverCreatesInk(t *testing.T) {
	for _, p := range []Policy{Tight(), Loose()} {
		m := sparse()
		before := inkSet(m)
		New(p).Denoise(m)
		for i := range inkSet(m) {
			require.True(t, before[i], "pixel %d became ink", i)
		}
	}
}

func TestDenoiseSecondPassIsFixedPoint(t *testing.T) {
	for _, p := range []Policy{Tight(), Loose()} {
		m := sparse()
		d := New(p)
		d.Denoise(m)
		assert.Zero(t, d.Denoise(m))
	}
}

func TestDenoiseSkipsBorders(t *testing.T) {
	m := newMask(4, 4)
	ink(m, 0, 0, 100)
	ink(m, 3, 2, 100)

	assert.Zero(t, New(Tight()).Denoise(m))
	assert.Equal(t, 2, m.Counts()[signature.Green])
}

func TestDenoiseReadsPrePassAlpha(t *testing.T) {
	// A diagonal pair: each has zero 4-neighbours, both go in one pass.
	m := newMask(7, 7)
	ink(m, 1, 1, 220)
	ink(m, 2, 2, 220)
	// A 1x2 bar: each has one 4-neighbour, both go.
	ink(m, 4, 4, 220)
	ink(m, 5, 4, 220)

	assert.Equal(t, 4, New(Tight()).Denoise(m))
}

func TestOffAndTinyMasks(t *testing.T) {
	m := sparse()
	assert.Zero(t, New(Off()).Denoise(m))
	assert.Zero(t, New(Tight()).Denoise(newMask(2, 2)))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("loose")
	require.NoError(t, err)
	assert.Equal(t, Loose(), p)

	_, err = ParsePolicy("aggressive")
	assert.True(t, apperr.IsCode(err, apperr.ConfigInvalid))
}
