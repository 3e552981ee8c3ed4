// Package classify decides, per pixel, which calibrated ink colour (if any)
// a pixel belongs to and renders the ink-only output mask.
package classify

// Classifier defaults.
const (
	DefaultBrightness = 1.5

	// Luminance threshold when a signature carries none.
	DefaultLuminanceThreshold = 100

	// Neutral-light guard: below either bound a pixel is lamp light, not ink.
	DefaultMinSaturation = 0.3
	DefaultMinVariance   = 60

	// Rendered alpha.
	DefaultInkAlpha  = 220
	DefaultPinkAlpha = 200

	// Saturation alpha: min(255, base + saturation*span).
	DefaultSaturationAlphaBase = 180
	DefaultSaturationAlphaSpan = 75

	// Margin alpha: min(255, base + margin*gain).
	DefaultMarginAlphaBase = 200
	DefaultMarginAlphaGain = 0.5

	// HSV mode (OpenCV scale: H 0-180, S and V 0-255).
	DefaultHSVMinSaturation = 30
	DefaultHueHalfWidth     = 20
)

// Luminance weights (ITU-R BT.601).
const (
	lumR = 0.299
	lumG = 0.587
	lumB = 0.114
)
