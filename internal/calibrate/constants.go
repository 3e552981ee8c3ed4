// Package calibrate derives colour signatures from sampled frame regions.
package calibrate

// Calibration defaults.
const (
	// Window radius; 3 gives the 7x7 sampling window.
	DefaultRadius = 3

	// Distance tolerances.
	DefaultTolerance     = 70
	DefaultPinkTolerance = 90

	// Fixed-policy luminance threshold.
	DefaultThreshold = 100

	// Fraction policies: threshold = max(floor, fraction * sampled peak).
	DefaultChannelFraction   = 0.7
	DefaultLuminanceFraction = 0.6
	DefaultThresholdFloor    = 30

	// Green/blue inference: one channel must beat the other by this ratio.
	DefaultLabelRatio = 1.2
)

// Luminance weights (ITU-R BT.601).
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)
