package compose

// Compositor defaults.
const (
	DefaultGlowRadius   = 10
	DefaultGlowStrength = 1.0

	// Glow colour for labels without one.
	DefaultGlowColor = "#00ffaa"
)
