package compose

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

func mask(w, h int) *frame.Mask {
	m := frame.NewMask(w, h)
	m.Labels = []signature.Label{signature.Green, signature.Pink}
	return m
}

func paint(m *frame.Mask, x, y int, class uint8, r, g, b, a uint8) {
	m.Image.Set(x, y, r, g, b, a)
	m.Class[y*m.Width()+x] = class
}

func noGlow() Options { return Options{} }

func TestComposeNative(t *testing.T) {
	m := mask(2, 1)
	paint(m, 0, 0, 1, 0, 255, 0, 255)

	out, err := Compose(m, noGlow())
	require.NoError(t, err)

	assert.Equal(t, Scale{X: 1, Y: 1}, out.Scale)
	assert.Equal(t, []uint8{0, 255, 0, 255, 0, 0, 0, 0}, out.Image.Pix)
	assert.Equal(t, 1, out.Counts[signature.Green])
	assert.Empty(t, out.Glow)
}

func TestComposeMirrored(t *testing.T) {
	m := mask(3, 1)
	paint(m, 0, 0, 1, 0, 255, 0, 255)

	opts := noGlow()
	opts.Mirrored = true
	out, err := Compose(m, opts)
	require.NoError(t, err)

	assert.True(t, out.Mirrored)
	assert.Equal(t, uint8(0), out.Image.Pix[3])
	assert.Equal(t, uint8(255), out.Image.Pix[2*4+3])
}

func TestComposeScalesAxesIndependently(t *testing.T) {
	m := mask(2, 1)
	paint(m, 1, 0, 1, 0, 255, 0, 255)

	opts := noGlow()
	opts.DisplayWidth, opts.DisplayHeight = 4, 3
	out, err := Compose(m, opts)
	require.NoError(t, err)

	assert.Equal(t, Scale{X: 2, Y: 3}, out.Scale)
	require.Equal(t, 4, out.Image.Rect.Dx())
	require.Equal(t, 3, out.Image.Rect.Dy())
	for y := 0; y < 3; y++ {
		assert.Zero(t, out.Image.RGBAAt(1, y).A)
		assert.Equal(t, uint8(255), out.Image.RGBAAt(2, y).A)
		assert.Equal(t, uint8(255), out.Image.RGBAAt(3, y).A)
	}
}

func TestComposeStraightAlpha(t *testing.T) {
	m := mask(1, 1)
	paint(m, 0, 0, 1, 0, 255, 0, 220)

	out, err := Compose(m, noGlow())
	require.NoError(t, err)

	assert.Equal(t, []uint8{0, 220, 0, 220}, out.Image.Pix)
	assert.Equal(t, []uint8{0, 255, 0, 220}, out.Straight())
}

func TestComposeGlow(t *testing.T) {
	m := mask(9, 9)
	paint(m, 4, 4, 2, 255, 0, 255, 200)

	opts := Options{GlowRadius: 2, GlowStrength: 1, GlowColors: map[signature.Label]string{signature.Pink: "#ec4899"}}
	out, err := Compose(m, opts)
	require.NoError(t, err)

	near := out.Image.RGBAAt(5, 4)
	assert.NotZero(t, near.A, "glow spreads to neighbours")
	assert.Greater(t, near.R, near.G, "glow takes the label colour")
	assert.Zero(t, out.Image.RGBAAt(0, 0).A, "glow is local")

	require.Len(t, out.Glow, 1)
	assert.Equal(t, GlowSpec{Label: signature.Pink, Color: "#ec4899", Radius: 2}, out.Glow[0])
}

func TestComposeGlowDefaultColour(t *testing.T) {
	m := mask(5, 5)
	paint(m, 2, 2, 1, 0, 255, 0, 255)

	out, err := Compose(m, Options{GlowRadius: 1, GlowStrength: 1})
	require.NoError(t, err)
	require.Len(t, out.Glow, 1)
	assert.Equal(t, DefaultGlowColor, out.Glow[0].Color)
}

func TestComposeInvalidMask(t *testing.T) {
	_, err := Compose(&frame.Mask{Image: frame.New(0, 0)}, noGlow())
	assert.True(t, apperr.IsCode(err, apperr.InvalidFrame))

	_, err = New(Options{GlowColors: map[signature.Label]string{signature.Green: "green"}})
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
}

func TestBoxBlurPreservesPremultiplied(t *testing.T) {
	m := mask(7, 7)
	paint(m, 3, 3, 1, 0, 255, 0, 255)
	c, err := New(Options{GlowRadius: 3, GlowStrength: 1})
	require.NoError(t, err)

	layer := c.glowLayer(m, 3)
	for i := 0; i < len(layer.Pix); i += 4 {
		a := layer.Pix[i+3]
		require.LessOrEqual(t, layer.Pix[i], a)
		require.LessOrEqual(t, layer.Pix[i+1], a)
		require.LessOrEqual(t, layer.Pix[i+2], a)
	}
}

func TestOutputToFrame(t *testing.T) {
	out := &Output{Native: image.Pt(10, 5), Scale: Scale{X: 2, Y: 4}}
	assert.Equal(t, image.Pt(3, 2), out.ToFrame(7, 9))

	out.Mirrored = true
	// Display x=1 is the rightmost frame column.
	assert.Equal(t, image.Pt(9, 0), out.ToFrame(1, 0))
}
