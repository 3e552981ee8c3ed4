package classify

import (
	"math"
	"strings"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Mode selects the detection strategy.
type Mode int

const (
	Distance Mode = iota
	Luminance
	HSV
)

func (m Mode) String() string {
	switch m {
	case Distance:
		return "distance"
	case Luminance:
		return "luminance"
	case HSV:
		return "hsv"
	}
	return "unknown"
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "distance", "":
		return Distance, nil
	case "luminance":
		return Luminance, nil
	case "hsv", "opencv":
		return HSV, nil
	}
	return Distance, apperr.Newf(apperr.ConfigInvalid, "unknown detection mode %q", s)
}

// AlphaMode selects how a matched pixel's alpha is computed.
type AlphaMode int

const (
	AlphaFixed AlphaMode = iota
	AlphaSaturation
	AlphaMargin
)

func (a AlphaMode) String() string {
	switch a {
	case AlphaFixed:
		return "fixed"
	case AlphaSaturation:
		return "saturation"
	case AlphaMargin:
		return "margin"
	}
	return "unknown"
}

// ParseAlphaMode parses an alpha mode name.
func ParseAlphaMode(s string) (AlphaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return AlphaFixed, nil
	case "saturation":
		return AlphaSaturation, nil
	case "margin":
		return AlphaMargin, nil
	}
	return AlphaFixed, apperr.Newf(apperr.ConfigInvalid, "unknown alpha mode %q", s)
}

// Guard rejects neutral light: pixels whose saturation or channel variance
// is too low to be ink. A zero bound is disabled.
type Guard struct {
	MinSaturation float64
	MinVariance   float64
}

// Neutral reports whether px is lamp light rather than ink.
func (g Guard) Neutral(sat, variance float64) bool {
	return (g.MinSaturation > 0 && sat < g.MinSaturation) ||
		(g.MinVariance > 0 && variance < g.MinVariance)
}

// AlphaParams parameterises the computed alpha modes.
type AlphaParams struct {
	SaturationBase float64
	SaturationSpan float64
	MarginBase     float64
	MarginGain     float64
}

// Config parameterises a Classifier.
type Config struct {
	Mode       Mode
	Brightness float64
	Rules      map[signature.Label]Rule
	// Precedence lists labels from strongest to weakest. Labels not listed
	// follow in set declaration order.
	Precedence       []signature.Label
	// Guard applies in luminance and HSV modes, DistanceGuard in distance
	// mode where the reference distance already bounds the colour.
	Guard            Guard
	DistanceGuard    Guard
	AlphaMode        AlphaMode
	Alpha            AlphaParams
	HSVMinSaturation float64
}

// DefaultConfig returns the distance-mode defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          Distance,
		Brightness:    DefaultBrightness,
		Rules:         DefaultRules(),
		Precedence:    []signature.Label{signature.Pink, signature.Green, signature.Blue},
		Guard:         Guard{MinSaturation: DefaultMinSaturation, MinVariance: DefaultMinVariance},
		DistanceGuard: Guard{MinSaturation: DefaultMinSaturation},
		AlphaMode:     AlphaFixed,
		Alpha: AlphaParams{
			SaturationBase: DefaultSaturationAlphaBase,
			SaturationSpan: DefaultSaturationAlphaSpan,
			MarginBase:     DefaultMarginAlphaBase,
			MarginGain:     DefaultMarginAlphaGain,
		},
		HSVMinSaturation: DefaultHSVMinSaturation,
	}
}

// Match is the winning classification of one pixel.
type Match struct {
	Label      signature.Label
	Index      int // declaration index in the set
	Saturation float64
	Margin     float64
}

// Stats summarises one classified frame.
type Stats struct {
	Pixels   int
	Ink      map[signature.Label]int
	Overlaps int // pixels matched by more than one signature
	NoActive bool
}

// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	cfg Config
}

// New validates cfg and returns a classifier.
func New(cfg Config) (*Classifier, error) {
	if math.IsNaN(cfg.Brightness) || math.IsInf(cfg.Brightness, 0) || cfg.Brightness < 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "brightness must be a non-negative number, got %v", cfg.Brightness)
	}
	if cfg.Mode < Distance || cfg.Mode > HSV {
		return nil, apperr.Newf(apperr.InvalidArgument, "unknown mode %d", cfg.Mode)
	}
	if cfg.Guard.MinSaturation < 0 || cfg.Guard.MinVariance < 0 ||
		cfg.DistanceGuard.MinSaturation < 0 || cfg.DistanceGuard.MinVariance < 0 {
		return nil, apperr.New(apperr.InvalidArgument, "guard bounds must be non-negative")
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	return &Classifier{cfg: cfg}, nil
}

// Config returns the classifier's configuration.
func (c *Classifier) Config() Config { return c.cfg }

// Rule returns the rule applied to label.
func (c *Classifier) Rule(label signature.Label) Rule {
	if r, ok := c.cfg.Rules[label]; ok {
		return r
	}
	return GenericRule()
}

// WithMode returns a copy using mode.
func (c *Classifier) WithMode(mode Mode) (*Classifier, error) {
	cfg := c.cfg
	cfg.Mode = mode
	return New(cfg)
}

// WithBrightness returns a copy using brightness.
func (c *Classifier) WithBrightness(brightness float64) (*Classifier, error) {
	cfg := c.cfg
	cfg.Brightness = brightness
	return New(cfg)
}

type candidate struct {
	sig   signature.Signature
	index int
	dom   Dominance
	tint  Tint
	hue   HueRange
}

// plan orders the active signatures of set by precedence.
func (c *Classifier) plan(set *signature.Set) []candidate {
	taken := make([]bool, set.Len())
	out := make([]candidate, 0, set.Len())
	add := func(i int) {
		sig := set.At(i)
		if taken[i] || !sig.Active {
			return
		}
		taken[i] = true
		rule := c.Rule(sig.Label)
		hue := rule.Hue
		if hue.zero() {
			hue = hueAround(sig.Reference)
		}
		out = append(out, candidate{
			sig:   sig,
			index: i,
			dom:   rule.dominanceFor(c.cfg.Mode),
			tint:  rule.tintFor(c.cfg.Mode),
			hue:   hue,
		})
	}
	for _, l := range c.cfg.Precedence {
		if i := set.Index(l); i >= 0 {
			add(i)
		}
	}
	for i := 0; i < set.Len(); i++ {
		add(i)
	}
	return out
}

type pixel struct {
	r, g, b       uint8
	rgb           [3]float64
	lum           float64
	sat, variance float64
	h, s, v       uint8
}

func newPixel(r, g, b uint8) pixel {
	p := pixel{r: r, g: g, b: b, rgb: [3]float64{float64(r), float64(g), float64(b)}}
	p.lum = lumR*p.rgb[0] + lumG*p.rgb[1] + lumB*p.rgb[2]
	hi := max(p.rgb[0], p.rgb[1], p.rgb[2])
	lo := min(p.rgb[0], p.rgb[1], p.rgb[2])
	if hi > 0 {
		p.sat = (hi - lo) / hi
	}
	p.variance = math.Abs(p.rgb[0]-p.rgb[1]) + math.Abs(p.rgb[1]-p.rgb[2]) + math.Abs(p.rgb[2]-p.rgb[0])
	return p
}

// matches returns the margin by which px satisfies cand.
func (c *Classifier) matches(cand *candidate, px *pixel) (float64, bool) {
	t := cand.sig.Tolerance
	if c.cfg.Mode != Distance {
		t = threshold(cand.sig)
	}
	switch c.cfg.Mode {
	case Luminance:
		if !(px.lum > t) || !cand.dom.Holds(px.rgb, t) {
			return 0, false
		}
		return cand.dom.primary(px.rgb, px.lum) - t, true
	case HSV:
		if float64(px.s) < c.cfg.HSVMinSaturation || float64(px.v) < t || !cand.hue.Contains(float64(px.h)) {
			return 0, false
		}
		return float64(px.v) - t, true
	default:
		d := cand.sig.Reference.Distance(px.r, px.g, px.b)
		if !(d < t) || !cand.dom.Holds(px.rgb, t) {
			return 0, false
		}
		return t - d, true
	}
}

func (c *Classifier) guard() Guard {
	if c.cfg.Mode == Distance {
		return c.cfg.DistanceGuard
	}
	return c.cfg.Guard
}

// threshold returns sig's luminance threshold, defaulting when unset.
func threshold(sig signature.Signature) float64 {
	if sig.Threshold > 0 {
		return sig.Threshold
	}
	return DefaultLuminanceThreshold
}

// resolve returns the winning candidate for px and whether another
// candidate matched too.
func (c *Classifier) resolve(plan []candidate, px *pixel) (win int, margin float64, overlap bool) {
	win = -1
	if c.guard().Neutral(px.sat, px.variance) {
		return win, 0, false
	}
	for i := range plan {
		m, ok := c.matches(&plan[i], px)
		if !ok {
			continue
		}
		if win >= 0 {
			return win, margin, true
		}
		win, margin = i, m
	}
	return win, margin, false
}

// Classify classifies a single colour against set.
func (c *Classifier) Classify(r, g, b uint8, set *signature.Set) (Match, bool) {
	plan := c.plan(set)
	px := newPixel(r, g, b)
	if c.cfg.Mode == HSV {
		px.h, px.s, px.v = toHSV(r, g, b)
	}
	win, margin, _ := c.resolve(plan, &px)
	if win < 0 {
		return Match{}, false
	}
	return Match{
		Label:      plan[win].sig.Label,
		Index:      plan[win].index,
		Saturation: px.sat,
		Margin:     margin,
	}, true
}

// ClassifyFrame writes the ink-only rendition of src into dst. Every
// destination pixel is written: background is fully transparent.
func (c *Classifier) ClassifyFrame(src *frame.Buffer, dst *frame.Mask, set *signature.Set) (Stats, error) {
	if err := src.Validate(); err != nil {
		return Stats{}, err
	}
	if err := dst.Validate(); err != nil {
		return Stats{}, err
	}
	if !src.SameSize(dst.Image) {
		return Stats{}, apperr.Newf(apperr.InvalidFrame, "source is %dx%d, mask is %dx%d",
			src.Width, src.Height, dst.Width(), dst.Height())
	}

	if set.Len() > signature.MaxLabels {
		return Stats{}, apperr.Newf(apperr.InvalidArgument, "set has %d signatures, at most %d allowed", set.Len(), signature.MaxLabels)
	}

	dst.Reset(set.Labels())
	stats := Stats{Pixels: src.Width * src.Height, Ink: make(map[signature.Label]int)}
	plan := c.plan(set)
	if len(plan) == 0 {
		stats.NoActive = true
		return stats, nil
	}

	var hsv []uint8
	if c.cfg.Mode == HSV {
		hsv = make([]uint8, stats.Pixels*3)
		if err := convertHSV(src, hsv); err != nil {
			return Stats{}, err
		}
	}

	for i := 0; i < stats.Pixels; i++ {
		o := i * frame.BytesPerPixel
		px := newPixel(src.Pix[o], src.Pix[o+1], src.Pix[o+2])
		if hsv != nil {
			px.h, px.s, px.v = hsv[i*3], hsv[i*3+1], hsv[i*3+2]
		}
		win, margin, overlap := c.resolve(plan, &px)
		if win < 0 {
			continue
		}
		if overlap {
			stats.Overlaps++
		}
		cand := &plan[win]
		c.render(dst.Image.Pix[o:o+4:o+4], &px, cand.tint, margin)
		dst.Class[i] = uint8(cand.index + 1)
		stats.Ink[cand.sig.Label]++
	}
	return stats, nil
}

func (c *Classifier) render(out []uint8, px *pixel, tint Tint, margin float64) {
	for ch := Red; ch <= Blue; ch++ {
		out[ch] = clamp8(px.rgb[ch] * tint.factor(ch, c.cfg.Brightness))
	}
	switch c.cfg.AlphaMode {
	case AlphaSaturation:
		out[3] = clamp8(c.cfg.Alpha.SaturationBase + px.sat*c.cfg.Alpha.SaturationSpan)
	case AlphaMargin:
		out[3] = clamp8(c.cfg.Alpha.MarginBase + margin*c.cfg.Alpha.MarginGain)
	default:
		out[3] = tint.Alpha
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
