package denoise

// Policy defaults.
const (
	TightMinNeighbors = 2

	// Fewer than three filled of eight is six or more transparent.
	LooseMinNeighbors = 3
	LooseMaxAlpha     = 200
)
