package classify

import (
	"strings"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// Channel indexes an RGB channel.
type Channel int

const (
	NoChannel Channel = iota - 1
	Red
	Green
	Blue
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "r"
	case Green:
		return "g"
	case Blue:
		return "b"
	default:
		return ""
	}
}

// ParseChannel accepts r/g/b (or red/green/blue); empty means NoChannel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return NoChannel, nil
	case "r", "red":
		return Red, nil
	case "g", "green":
		return Green, nil
	case "b", "blue":
		return Blue, nil
	}
	return NoChannel, apperr.Newf(apperr.ConfigInvalid, "unknown channel %q", s)
}

// Ratios holds one multiplier per channel. Zero disables the comparison.
type Ratios struct {
	R, G, B float64
}

// Of returns the ratio for c.
func (r Ratios) Of(c Channel) float64 {
	switch c {
	case Red:
		return r.R
	case Green:
		return r.G
	case Blue:
		return r.B
	}
	return 0
}

// Dominance is a per-label channel rule that separates similar hues.
//
// The dominant Channel must exceed Floor (when set), the signature threshold
// (when AboveThreshold) and every other channel scaled by Over. An optional
// Partner channel must beat the remaining channels by PartnerOver, and the
// two may not differ by more than MaxImbalance in either direction.
type Dominance struct {
	Channel        Channel
	Floor          float64
	AboveThreshold bool
	Over           Ratios
	Partner        Channel
	PartnerOver    Ratios
	MaxImbalance   float64
}

// Holds evaluates the rule for px against the signature threshold.
func (d Dominance) Holds(px [3]float64, threshold float64) bool {
	if d.Channel == NoChannel {
		return true
	}
	v := px[d.Channel]
	if d.Floor > 0 && !(v > d.Floor) {
		return false
	}
	if d.AboveThreshold && !(v > threshold) {
		return false
	}
	if !exceeds(px, d.Channel, d.Over) {
		return false
	}
	if d.Partner == NoChannel {
		return true
	}
	pv := px[d.Partner]
	if !exceeds(px, d.Partner, d.PartnerOver) {
		return false
	}
	if d.MaxImbalance > 0 && (v > pv*d.MaxImbalance || pv > v*d.MaxImbalance) {
		return false
	}
	return true
}

func exceeds(px [3]float64, self Channel, over Ratios) bool {
	v := px[self]
	for c := Red; c <= Blue; c++ {
		if c == self {
			continue
		}
		if k := over.Of(c); k > 0 && !(v > px[c]*k) {
			return false
		}
	}
	return true
}

// primary returns the value the margin is measured on.
func (d Dominance) primary(px [3]float64, lum float64) float64 {
	if d.Channel == NoChannel {
		return lum
	}
	return px[d.Channel]
}

// HueRange is an inclusive hue interval on the OpenCV 0-180 scale.
// Min > Max wraps through red. The zero value derives a range from the
// signature's reference colour.
type HueRange struct {
	Min, Max float64
}

func (h HueRange) zero() bool { return h.Min == 0 && h.Max == 0 }

// Contains reports whether hue lies in the range.
func (h HueRange) Contains(hue float64) bool {
	if h.Min <= h.Max {
		return hue >= h.Min && hue <= h.Max
	}
	return hue >= h.Min || hue <= h.Max
}

// Tint turns a matched pixel into its rendered colour. Channels listed in
// Boost are multiplied by the brightness; the rest by Scale.
type Tint struct {
	Boost []Channel
	Scale Ratios
	Alpha uint8
}

func (t Tint) factor(c Channel, brightness float64) float64 {
	for _, b := range t.Boost {
		if b == c {
			return brightness
		}
	}
	return t.Scale.Of(c)
}

// Rule bundles the per-label detection and rendering parameters.
type Rule struct {
	Distance      Dominance
	Luminance     Dominance
	Hue           HueRange
	Tint          Tint
	LuminanceTint *Tint // nil reuses Tint
	Glow          string
}

func (r Rule) tintFor(mode Mode) Tint {
	if mode != Distance && r.LuminanceTint != nil {
		return *r.LuminanceTint
	}
	return r.Tint
}

func (r Rule) dominanceFor(mode Mode) Dominance {
	if mode == Distance {
		return r.Distance
	}
	return r.Luminance
}

var none = Dominance{Channel: NoChannel, Partner: NoChannel}

// GenericRule is used for labels without a configured rule: no dominance
// constraint, every channel boosted.
func GenericRule() Rule {
	return Rule{
		Distance:  none,
		Luminance: none,
		Tint:      Tint{Boost: []Channel{Red, Green, Blue}, Alpha: DefaultInkAlpha},
		Glow:      "#ffffff",
	}
}

// DefaultRules returns the built-in rules for green, blue and pink.
func DefaultRules() map[signature.Label]Rule {
	return map[signature.Label]Rule{
		signature.Green: {
			Distance:      Dominance{Channel: Green, Over: Ratios{R: 1, B: 1}, Partner: NoChannel},
			Luminance:     Dominance{Channel: Green, AboveThreshold: true, Over: Ratios{R: 1.3, B: 1.1}, Partner: NoChannel},
			Hue:           HueRange{Min: 40, Max: 80},
			Tint:          Tint{Boost: []Channel{Green}, Alpha: DefaultInkAlpha},
			LuminanceTint: &Tint{Boost: []Channel{Green}, Scale: Ratios{B: 0.5}, Alpha: DefaultInkAlpha},
			Glow:          "#00ffaa",
		},
		signature.Blue: {
			Distance:      Dominance{Channel: Blue, Over: Ratios{R: 1, G: 0.8}, Partner: NoChannel},
			Luminance:     Dominance{Channel: Blue, AboveThreshold: true, Over: Ratios{R: 1.3, G: 1.1}, Partner: NoChannel},
			Hue:           HueRange{Min: 90, Max: 130},
			Tint:          Tint{Boost: []Channel{Blue}, Alpha: DefaultInkAlpha},
			LuminanceTint: &Tint{Boost: []Channel{Blue}, Scale: Ratios{G: 0.5}, Alpha: DefaultInkAlpha},
			Glow:          "#3b82f6",
		},
		signature.Pink: {
			Distance: Dominance{
				Channel: Red, Floor: 100, Over: Ratios{G: 1.2},
				Partner: Blue, PartnerOver: Ratios{G: 1}, MaxImbalance: 2,
			},
			Luminance: Dominance{
				Channel: Red, AboveThreshold: true, Over: Ratios{G: 1.2},
				Partner: Blue, PartnerOver: Ratios{G: 1}, MaxImbalance: 2,
			},
			Hue:  HueRange{Min: 140, Max: 170},
			Tint: Tint{Boost: []Channel{Red, Blue}, Scale: Ratios{G: 0.3}, Alpha: DefaultPinkAlpha},
			Glow: "#ec4899",
		},
	}
}
