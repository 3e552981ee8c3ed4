package capture

import (
	"context"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"time"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// Still replays one decoded image as a video stream.
type Still struct {
	buf      *frame.Buffer
	out      *frame.Buffer
	interval time.Duration
	last     time.Time
}

// OpenImage decodes the PNG or JPEG at path.
func OpenImage(path string, fps float64) (*Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.SourceUnavailable, "open image %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidArgument, "decode image %s", path)
	}
	return NewStill(frame.FromImage(img), fps), nil
}

// NewStill replays buf at fps.
func NewStill(buf *frame.Buffer, fps float64) *Still {
	s := &Still{buf: buf, out: buf.Clone()}
	if fps > 0 {
		s.interval = time.Duration(float64(time.Second) / fps)
	}
	return s
}

// Next returns a fresh copy of the image each frame.
func (s *Still) Next(ctx context.Context) (*frame.Buffer, error) {
	if s.interval > 0 && !s.last.IsZero() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Until(s.last.Add(s.interval))):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.last = time.Now()
	copy(s.out.Pix, s.buf.Pix)
	return s.out, nil
}

// Close is a no-op.
func (s *Still) Close() error { return nil }
