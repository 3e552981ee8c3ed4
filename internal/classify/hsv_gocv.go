//go:build gocv

package classify

import (
	"gocv.io/x/gocv"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
)

func init() {
	convertHSV = convertHSVOpenCV
}

func convertHSVOpenCV(src *frame.Buffer, dst []uint8) error {
	mat, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC4, src.Pix)
	if err != nil {
		return apperr.Wrap(err, apperr.Internal, "wrap frame for OpenCV")
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	copy(dst, hsv.ToBytes())
	return nil
}
