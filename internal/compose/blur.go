package compose

import "image"

// boxBlur blurs a premultiplied image in place with a separable box filter.
// Samples past the edge repeat the edge pixel.
func boxBlur(img *image.RGBA, r int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if r <= 0 || w == 0 || h == 0 {
		return
	}
	tmp := make([]uint8, len(img.Pix))
	blurLines(img.Pix, tmp, h, w, img.Stride, 4, r)
	blurLines(tmp, img.Pix, w, h, 4, img.Stride, r)
}

// blurLines runs a sliding-window mean along lines of length n. Line l starts
// at l*lineStride and consecutive samples are step bytes apart.
func blurLines(src, dst []uint8, lines, n, lineStride, step, r int) {
	span := 2*r + 1
	at := func(i int) int { return min(max(i, 0), n-1) * step }
	for l := 0; l < lines; l++ {
		base := l * lineStride
		for c := 0; c < 4; c++ {
			sum := 0
			for k := -r; k <= r; k++ {
				sum += int(src[base+at(k)+c])
			}
			for i := 0; i < n; i++ {
				dst[base+i*step+c] = uint8(sum / span)
				sum += int(src[base+at(i+r+1)+c]) - int(src[base+at(i-r)+c])
			}
		}
	}
}
