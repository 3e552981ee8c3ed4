package classify

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

// convertHSV fills dst with one H, S, V triple per pixel of src using the
// 8-bit OpenCV convention (H 0-180, S and V 0-255). Builds with the gocv tag
// replace it with an OpenCV conversion.
var convertHSV = convertHSVColorful

func convertHSVColorful(src *frame.Buffer, dst []uint8) error {
	n := src.Width * src.Height
	for i := 0; i < n; i++ {
		p := src.Pix[i*frame.BytesPerPixel:]
		h, s, v := toHSV(p[0], p[1], p[2])
		dst[i*3], dst[i*3+1], dst[i*3+2] = h, s, v
	}
	return nil
}

func toHSV(r, g, b uint8) (h, s, v uint8) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hh, ss, vv := c.Hsv()
	return uint8(math.Mod(math.Round(hh/2), 180)), uint8(math.Round(ss * 255)), uint8(math.Round(vv * 255))
}

// hueAround derives a hue range centred on the reference colour.
func hueAround(ref signature.RGB) HueRange {
	h, _, _ := toHSV(ref.R, ref.G, ref.B)
	lo := math.Mod(float64(h)-DefaultHueHalfWidth+180, 180)
	hi := math.Mod(float64(h)+DefaultHueHalfWidth, 180)
	return HueRange{Min: lo, Max: hi}
}
