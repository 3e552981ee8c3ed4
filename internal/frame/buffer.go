// Package frame provides RGBA frame buffers and classified ink masks.
package frame

import (
	"image"
	"image/draw"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
)

// BytesPerPixel is the RGBA channel count.
const BytesPerPixel = 4

// Buffer is a row-major RGBA pixel grid, 8 bits per channel.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (fully transparent) buffer.
func New(width, height int) *Buffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Buffer{Width: width, Height: height, Pix: make([]uint8, width*height*BytesPerPixel)}
}

// FromImage copies img into a new buffer.
func FromImage(img image.Image) *Buffer {
	b := img.Bounds()
	buf := New(b.Dx(), b.Dy())
	draw.Draw(buf.Image(), buf.Image().Bounds(), img, b.Min, draw.Src)
	return buf
}

// Image returns an *image.RGBA sharing the buffer's pixels.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{Pix: b.Pix, Stride: b.Width * BytesPerPixel, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// NRGBA returns a non-premultiplied view sharing the buffer's pixels.
// Classified masks store straight alpha.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: b.Pix, Stride: b.Width * BytesPerPixel, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Validate fails with InvalidFrame for zero-area or inconsistent buffers.
func (b *Buffer) Validate() error {
	if b == nil {
		return apperr.New(apperr.InvalidFrame, "nil frame")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return apperr.Newf(apperr.InvalidFrame, "zero-area frame %dx%d", b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*BytesPerPixel {
		return apperr.Newf(apperr.InvalidFrame, "frame %dx%d has %d bytes, want %d",
			b.Width, b.Height, len(b.Pix), b.Width*b.Height*BytesPerPixel)
	}
	return nil
}

// SameSize reports whether b and o share dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// Clamp moves (x, y) into bounds.
func (b *Buffer) Clamp(x, y int) (int, int) {
	return clamp(x, 0, b.Width-1), clamp(y, 0, b.Height-1)
}

// Offset returns the index of the R byte of (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * BytesPerPixel
}

// RGBAt returns the colour channels at (x, y).
func (b *Buffer) RGBAt(x, y int) (r, g, bl, a uint8) {
	i := b.Offset(x, y)
	p := b.Pix[i : i+4 : i+4]
	return p[0], p[1], p[2], p[3]
}

// Set writes (x, y).
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) {
	i := b.Offset(x, y)
	p := b.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = r, g, bl, a
}

// Fill paints every pixel.
func (b *Buffer) Fill(r, g, bl, a uint8) {
	for i := 0; i < len(b.Pix); i += BytesPerPixel {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
	}
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]uint8, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
