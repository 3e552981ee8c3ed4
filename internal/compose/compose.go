// Package compose turns a classified mask into the display frame: scaled,
// optionally mirrored, with a soft glow under the ink.
package compose

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Interpolation selects the resampling kernel.
type Interpolation int

const (
	Nearest Interpolation = iota
	BiLinear
	CatmullRom
)

// ParseInterpolation parses a kernel name.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "":
		return Nearest, nil
	case "bilinear":
		return BiLinear, nil
	case "catmullrom":
		return CatmullRom, nil
	}
	return Nearest, apperr.Newf(apperr.ConfigInvalid, "unknown interpolation %q", s)
}

func (i Interpolation) interpolator() xdraw.Interpolator {
	switch i {
	case BiLinear:
		return xdraw.BiLinear
	case CatmullRom:
		return xdraw.CatmullRom
	default:
		return xdraw.NearestNeighbor
	}
}

// Options parameterises composition. A zero display size keeps the mask's
// native size. GlowRadius is in display pixels; zero disables glow.
type Options struct {
	DisplayWidth  int
	DisplayHeight int
	Mirrored      bool
	GlowRadius    int
	GlowStrength  float64
	Interpolation Interpolation
	GlowColors    map[signature.Label]string
}

// DefaultOptions returns native-size, unmirrored output with glow.
func DefaultOptions() Options {
	return Options{GlowRadius: DefaultGlowRadius, GlowStrength: DefaultGlowStrength}
}

// Scale is the display-to-native ratio per axis.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GlowSpec describes the glow for one label so a renderer can draw it itself.
type GlowSpec struct {
	Label  signature.Label `json:"label"`
	Color  string          `json:"color"`
	Radius int             `json:"radius"`
}

// Output is a composed display frame. Image is premultiplied.
type Output struct {
	Image    *image.RGBA
	Native   image.Point // mask size
	Scale    Scale
	Mirrored bool
	Glow     []GlowSpec
	Counts   map[signature.Label]int
}

// Straight returns the pixels with straight alpha, as canvas ImageData expects.
func (o *Output) Straight() []uint8 {
	out := make([]uint8, len(o.Image.Pix))
	for i := 0; i < len(out); i += 4 {
		a := o.Image.Pix[i+3]
		if a == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			out[i+c] = uint8(min(255, (uint32(o.Image.Pix[i+c])*255+uint32(a)/2)/uint32(a)))
		}
		out[i+3] = a
	}
	return out
}

// ToFrame maps a display coordinate back to mask coordinates, undoing
// scale and mirroring. The result is not clamped.
func (o *Output) ToFrame(x, y float64) image.Point {
	fx := x / o.Scale.X
	if o.Mirrored {
		fx = float64(o.Native.X) - fx
	}
	return image.Pt(int(math.Floor(fx)), int(math.Floor(y/o.Scale.Y)))
}

// Compositor renders masks with fixed options.
type Compositor struct {
	opts   Options
	colors map[signature.Label]color.RGBA
	hex    map[signature.Label]string
	interp xdraw.Interpolator
}

// New validates opts and parses the glow colours.
func New(opts Options) (*Compositor, error) {
	if opts.DisplayWidth < 0 || opts.DisplayHeight < 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "display size %dx%d is negative", opts.DisplayWidth, opts.DisplayHeight)
	}
	if opts.GlowRadius < 0 || opts.GlowStrength < 0 || math.IsNaN(opts.GlowStrength) {
		return nil, apperr.New(apperr.InvalidArgument, "glow radius and strength must be non-negative")
	}
	c := &Compositor{
		opts:   opts,
		colors: make(map[signature.Label]color.RGBA, len(opts.GlowColors)+1),
		hex:    make(map[signature.Label]string, len(opts.GlowColors)+1),
		interp: opts.Interpolation.interpolator(),
	}
	for label, hex := range opts.GlowColors {
		rgba, err := parseHex(hex)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.InvalidArgument, "glow colour for %q", label)
		}
		c.colors[label] = rgba
		c.hex[label] = hex
	}
	return c, nil
}

func parseHex(hex string) (color.RGBA, error) {
	col, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Options returns the compositor's options.
func (c *Compositor) Options() Options { return c.opts }

// WithMirrored returns a copy with mirroring set.
func (c *Compositor) WithMirrored(mirrored bool) *Compositor {
	next := *c
	next.opts.Mirrored = mirrored
	return &next
}

func (c *Compositor) glowColor(label signature.Label) (color.RGBA, string) {
	if rgba, ok := c.colors[label]; ok {
		return rgba, c.hex[label]
	}
	rgba, _ := parseHex(DefaultGlowColor)
	return rgba, DefaultGlowColor
}

// Compose renders m onto a new display frame.
func Compose(m *frame.Mask, opts Options) (*Output, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	return c.Compose(m)
}

// Compose renders m onto a new display frame.
func (c *Compositor) Compose(m *frame.Mask) (*Output, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	w, h := m.Width(), m.Height()
	dw, dh := c.opts.DisplayWidth, c.opts.DisplayHeight
	if dw == 0 {
		dw = w
	}
	if dh == 0 {
		dh = h
	}

	out := &Output{
		Image:    image.NewRGBA(image.Rect(0, 0, dw, dh)),
		Native:   image.Pt(w, h),
		Scale:    Scale{X: float64(dw) / float64(w), Y: float64(dh) / float64(h)},
		Mirrored: c.opts.Mirrored,
		Counts:   m.Counts(),
	}

	aff := f64.Aff3{out.Scale.X, 0, 0, 0, out.Scale.Y, 0}
	if c.opts.Mirrored {
		aff = f64.Aff3{-out.Scale.X, 0, float64(dw), 0, out.Scale.Y, 0}
	}

	if c.opts.GlowRadius > 0 && c.opts.GlowStrength > 0 {
		radius := int(math.Round(float64(c.opts.GlowRadius) / ((out.Scale.X + out.Scale.Y) / 2)))
		glow := c.glowLayer(m, max(radius, 1))
		c.interp.Transform(out.Image, aff, glow, glow.Bounds(), draw.Over, nil)
		out.Glow = c.glowSpecs(m, out.Counts)
	}
	ink := m.Image.NRGBA()
	c.interp.Transform(out.Image, aff, ink, ink.Bounds(), draw.Over, nil)
	return out, nil
}

func (c *Compositor) glowSpecs(m *frame.Mask, counts map[signature.Label]int) []GlowSpec {
	var specs []GlowSpec
	for _, label := range m.Labels {
		if counts[label] == 0 {
			continue
		}
		_, hex := c.glowColor(label)
		specs = append(specs, GlowSpec{Label: label, Color: hex, Radius: c.opts.GlowRadius})
	}
	return specs
}

// glowLayer paints every ink pixel in its label's glow colour, weighted by
// the ink alpha, and blurs the result.
func (c *Compositor) glowLayer(m *frame.Mask, radius int) *image.RGBA {
	w, h := m.Width(), m.Height()
	layer := image.NewRGBA(image.Rect(0, 0, w, h))

	palette := make([]color.RGBA, len(m.Labels)+1)
	for i, label := range m.Labels {
		palette[i+1], _ = c.glowColor(label)
	}

	for i, class := range m.Class {
		if class == frame.Background || int(class) >= len(palette) {
			continue
		}
		a := uint32(m.Image.Pix[i*frame.BytesPerPixel+3])
		col := palette[class]
		p := layer.Pix[i*4 : i*4+4 : i*4+4]
		p[0] = uint8(uint32(col.R) * a / 255)
		p[1] = uint8(uint32(col.G) * a / 255)
		p[2] = uint8(uint32(col.B) * a / 255)
		p[3] = uint8(a)
	}

	boxBlur(layer, radius)
	if c.opts.GlowStrength != 1 {
		for i, v := range layer.Pix {
			layer.Pix[i] = uint8(min(255, math.Round(float64(v)*c.opts.GlowStrength)))
		}
	}
	return layer
}
