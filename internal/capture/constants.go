package capture

// Capture defaults.
const (
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultFrameRate = 30.0

	// DefaultHealthyFrames is one second of video at the default rate.
	DefaultHealthyFrames = 30

	ffmpegBinary = "ffmpeg"
)
