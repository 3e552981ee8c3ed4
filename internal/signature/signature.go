// Package signature holds calibrated ink colour signatures.
package signature

import (
	"fmt"
	"math"
)

// Label identifies an ink colour. It drives rendering tint and precedence.
type Label string

// Built-in labels.
const (
	Green Label = "green"
	Blue  Label = "blue"
	Pink  Label = "pink"

	// Auto asks calibration to infer green or blue from the sample.
	Auto Label = "auto"
)

// RGB is an 8-bit colour triple.
type RGB struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("RGB(%d, %d, %d)", c.R, c.G, c.B)
}

// Distance is the Euclidean distance between c and (r, g, b) in RGB space.
func (c RGB) Distance(r, g, b uint8) float64 {
	dr := float64(r) - float64(c.R)
	dg := float64(g) - float64(c.G)
	db := float64(b) - float64(c.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Signature is a calibrated reference colour.
//
// Tolerance is the maximum colour distance in distance mode. Threshold is
// the minimum luminance in luminance mode and the minimum value in HSV
// mode. Each mode reads only its own field, so switching modes keeps both.
type Signature struct {
	Label     Label   `json:"label" yaml:"label"`
	Reference RGB     `json:"reference" yaml:"reference"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Active    bool    `json:"active" yaml:"active"`
}

// Valid reports whether s can be published.
func (s Signature) Valid() bool {
	return s.Label != "" && s.Label != Auto &&
		s.Tolerance >= 0 && !math.IsNaN(s.Tolerance) &&
		s.Threshold >= 0 && !math.IsNaN(s.Threshold)
}

// Defaults returns the start-up guesses used before any calibration.
func Defaults() []Signature {
	return []Signature{
		{Label: Green, Reference: RGB{0, 180, 50}, Tolerance: DefaultTolerance, Threshold: DefaultThreshold, Active: true},
		{Label: Blue, Reference: RGB{50, 50, 180}, Tolerance: DefaultTolerance, Threshold: DefaultThreshold, Active: true},
		{Label: Pink, Reference: RGB{180, 50, 120}, Tolerance: DefaultPinkTolerance, Threshold: DefaultThreshold, Active: true},
	}
}
