package signature

// Default tolerances for the start-up signatures.
const (
	DefaultTolerance = 70

	// Pink glows dimmer, so it gets more room.
	DefaultPinkTolerance = 90

	// Luminance (or HSV value) threshold.
	DefaultThreshold = 100
)

// MaxLabels bounds a set: mask class planes are one byte per pixel and 0
// is background.
const MaxLabels = 255
