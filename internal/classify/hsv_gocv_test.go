//go:build gocv

package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/inkglow/internal/frame"
)

func TestOpenCVMatchesColorful(t *testing.T) {
	src := frame.New(4, 1)
	src.Set(0, 0, 0, 200, 0, 255)
	src.Set(1, 0, 0, 0, 200, 255)
	src.Set(2, 0, 200, 0, 150, 255)
	src.Set(3, 0, 30, 90, 60, 255)

	want := make([]uint8, 12)
	got := make([]uint8, 12)
	require.NoError(t, convertHSVColorful(src, want))
	require.NoError(t, convertHSVOpenCV(src, got))

	for i := range want {
		diff := int(want[i]) - int(got[i])
		require.LessOrEqual(t, diff*diff, 1, "component %d: colorful %d, opencv %d", i, want[i], got[i])
	}
}
