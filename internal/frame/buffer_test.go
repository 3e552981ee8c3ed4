package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
		ok   bool
	}{
		{"nil", nil, false},
		{"zero area", New(0, 10), false},
		{"short pixels", &Buffer{Width: 2, Height: 2, Pix: make([]uint8, 15)}, false},
		{"valid", New(3, 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.InvalidFrame))
		})
	}
}

func TestClamp(t *testing.T) {
	b := New(4, 3)

	x, y := b.Clamp(-5, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 2, y)

	x, y = b.Clamp(2, 1)
	assert.Equal(t, 2, x)
	assert.Equal(t, 1, y)
}

func TestSetAndImageShareMemory(t *testing.T) {
	b := New(2, 2)
	b.Set(1, 0, 10, 20, 30, 40)

	r, g, bl, a := b.RGBAt(1, 0)
	assert.Equal(t, []uint8{10, 20, 30, 40}, []uint8{r, g, bl, a})
	assert.Equal(t, color.RGBA{10, 20, 30, 40}, b.Image().RGBAAt(1, 0))
}

func TestFromImageOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.SetRGBA(6, 5, color.RGBA{1, 2, 3, 255})

	b := FromImage(src)
	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 1, b.Height)

	r, g, bl, a := b.RGBAt(1, 0)
	assert.Equal(t, []uint8{1, 2, 3, 255}, []uint8{r, g, bl, a})
}

func TestMaskClearAndCounts(t *testing.T) {
	m := NewMask(3, 1)
	m.Reset([]signature.Label{signature.Green, signature.Pink})
	m.Class[0], m.Class[1], m.Class[2] = 1, 2, 2
	m.Image.Fill(9, 9, 9, 200)

	m.Clear(2)

	assert.Equal(t, map[signature.Label]int{signature.Green: 1, signature.Pink: 1}, m.Counts())
	_, _, _, a := m.Image.RGBAt(2, 0)
	assert.Zero(t, a)

	l, ok := m.LabelAt(1)
	assert.True(t, ok)
	assert.Equal(t, signature.Pink, l)
}

func TestPoolReturnsRequestedSize(t *testing.T) {
	p := NewPool()
	m := p.Get(4, 2)
	require.NoError(t, m.Validate())
	p.Put(m)

	again := p.Get(4, 2)
	assert.Equal(t, 4, again.Width())
	assert.Equal(t, 2, again.Height())

	other := p.Get(1, 1)
	assert.Equal(t, 1, other.Width())
}
