package calibrate

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Sample summarises a sampling window. It only lives for one calibration.
type Sample struct {
	Center       image.Point
	Count        int
	Mean         [3]float64
	Spread       [3]float64 // per-channel standard deviation
	Max          [3]uint8
	MaxLuminance float64
}

// Reference returns the floored channel means.
func (s Sample) Reference() signature.RGB {
	return signature.RGB{
		R: floorChannel(s.Mean[0]),
		G: floorChannel(s.Mean[1]),
		B: floorChannel(s.Mean[2]),
	}
}

// floorChannel floors a mean, absorbing float error from summation.
func floorChannel(v float64) uint8 {
	return uint8(math.Floor(v + 1e-9))
}

// SampleWindow averages the (2*radius+1)^2 window centred on (x, y).
// The centre is clamped into the frame and every window position is clamped
// individually, so windows touching an edge repeat the edge pixels.
func SampleWindow(buf *frame.Buffer, x, y, radius int) (Sample, error) {
	if err := buf.Validate(); err != nil {
		return Sample{}, err
	}
	if radius < 1 {
		radius = DefaultRadius
	}
	cx, cy := buf.Clamp(x, y)

	side := 2*radius + 1
	n := side * side
	chans := [3][]float64{make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)}
	lums := make([]float64, 0, n)

	s := Sample{Center: image.Pt(cx, cy), Count: n}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			sx, sy := buf.Clamp(cx+dx, cy+dy)
			r, g, b, _ := buf.RGBAt(sx, sy)
			chans[0] = append(chans[0], float64(r))
			chans[1] = append(chans[1], float64(g))
			chans[2] = append(chans[2], float64(b))
			lums = append(lums, lumR*float64(r)+lumG*float64(g)+lumB*float64(b))
		}
	}

	for c := range chans {
		s.Mean[c] = stat.Mean(chans[c], nil)
		s.Spread[c] = stat.PopStdDev(chans[c], nil)
		s.Max[c] = uint8(floats.Max(chans[c]))
	}
	s.MaxLuminance = floats.Max(lums)
	return s, nil
}

// PolicyKind selects how a calibrated luminance threshold is derived.
type PolicyKind int

const (
	// Fixed uses a constant threshold.
	Fixed PolicyKind = iota
	// LuminanceFraction uses a fraction of the sampled peak luminance.
	LuminanceFraction
	// ChannelFraction uses a fraction of the brightest sampled channel.
	ChannelFraction
)

func (k PolicyKind) String() string {
	switch k {
	case LuminanceFraction:
		return "luminance"
	case ChannelFraction:
		return "channel"
	default:
		return "fixed"
	}
}

// ParsePolicyKind maps a config string to a PolicyKind.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch s {
	case "", "fixed":
		return Fixed, nil
	case "luminance":
		return LuminanceFraction, nil
	case "channel":
		return ChannelFraction, nil
	}
	return Fixed, apperr.Newf(apperr.ConfigInvalid, "unknown calibration policy %q", s)
}

// Policy derives the tolerance and threshold of a freshly calibrated
// signature. The distance tolerance is always fixed; Kind picks how the
// luminance threshold follows the sample.
type Policy struct {
	Kind           PolicyKind
	Tolerance      float64
	LabelTolerance map[signature.Label]float64
	Threshold      float64 // Fixed kind
	Fraction       float64 // 0 uses the kind's default
	Floor          float64
}

// DefaultPolicy returns fixed distance tolerances and a threshold of 0.6
// of the sampled peak luminance.
func DefaultPolicy() Policy {
	return Policy{
		Kind:           LuminanceFraction,
		Tolerance:      DefaultTolerance,
		LabelTolerance: map[signature.Label]float64{signature.Pink: DefaultPinkTolerance},
		Threshold:      DefaultThreshold,
		Floor:          DefaultThresholdFloor,
	}
}

// ToleranceFor returns the distance tolerance for label.
func (p Policy) ToleranceFor(label signature.Label) float64 {
	if t, ok := p.LabelTolerance[label]; ok {
		return t
	}
	return p.Tolerance
}

// ThresholdFor applies the policy to a sample.
func (p Policy) ThresholdFor(s Sample) float64 {
	switch p.Kind {
	case LuminanceFraction:
		return math.Max(p.Floor, p.fraction(DefaultLuminanceFraction)*s.MaxLuminance)
	case ChannelFraction:
		peak := max(s.Max[0], s.Max[1], s.Max[2])
		return math.Max(p.Floor, p.fraction(DefaultChannelFraction)*float64(peak))
	default:
		return p.Threshold
	}
}

func (p Policy) fraction(def float64) float64 {
	if p.Fraction > 0 {
		return p.Fraction
	}
	return def
}

// InferLabel picks green or blue from the sampled means: a channel wins
// outright when it exceeds the other by ratio, otherwise the larger one wins
// and ties go to blue.
func InferLabel(s Sample, ratio float64) signature.Label {
	if ratio <= 0 {
		ratio = DefaultLabelRatio
	}
	g, b := s.Mean[1], s.Mean[2]
	switch {
	case g > b*ratio:
		return signature.Green
	case b > g*ratio:
		return signature.Blue
	case g > b:
		return signature.Green
	default:
		return signature.Blue
	}
}

// Options configures Calibrate.
type Options struct {
	Radius     int
	Policy     Policy
	LabelRatio float64
}

// DefaultOptions returns a 7x7 window with the default policy.
func DefaultOptions() Options {
	return Options{Radius: DefaultRadius, Policy: DefaultPolicy(), LabelRatio: DefaultLabelRatio}
}

// Calibrate samples the window around (x, y) and returns the signature for
// label. With signature.Auto the label is inferred from the sample. The
// result depends only on its inputs.
func Calibrate(buf *frame.Buffer, label signature.Label, x, y int, opts Options) (signature.Signature, Sample, error) {
	s, err := SampleWindow(buf, x, y, opts.Radius)
	if err != nil {
		return signature.Signature{}, Sample{}, err
	}
	if label == signature.Auto || label == "" {
		label = InferLabel(s, opts.LabelRatio)
	}
	return signature.Signature{
		Label:     label,
		Reference: s.Reference(),
		Tolerance: opts.Policy.ToleranceFor(label),
		Threshold: opts.Policy.ThresholdFor(s),
		Active:    true,
	}, s, nil
}
