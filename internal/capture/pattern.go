package capture

import (
	"context"
	"math"
	"time"

	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// Pattern is a synthetic camera: a dim violet UV-lit page with green, blue
// and pink strokes drifting across it. It needs no hardware.
type Pattern struct {
	buf      *frame.Buffer
	interval time.Duration
	last     time.Time
	tick     int
	limit    int
}

// NewPattern creates an endless pattern source paced at fps. fps <= 0
// produces frames as fast as they are read.
func NewPattern(width, height int, fps float64) *Pattern {
	p := &Pattern{buf: frame.New(width, height)}
	if fps > 0 {
		p.interval = time.Duration(float64(time.Second) / fps)
	}
	return p
}

// Limit makes the source close after n frames.
func (p *Pattern) Limit(n int) *Pattern {
	p.limit = n
	return p
}

var strokes = []struct {
	r, g, b uint8
	row     float64 // fraction of height
	speed   float64 // pixels per frame
}{
	{0, 190, 60, 0.25, 3},
	{40, 60, 200, 0.5, 2},
	{190, 50, 130, 0.75, 4},
}

// Next renders the next frame.
func (p *Pattern) Next(ctx context.Context) (*frame.Buffer, error) {
	if p.limit > 0 && p.tick >= p.limit {
		return nil, errClosed("pattern finished")
	}
	if p.interval > 0 && !p.last.IsZero() {
		wait := time.Until(p.last.Add(p.interval))
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.last = time.Now()

	b := p.buf
	b.Fill(30, 12, 45, 255)
	radius := max(2, b.Height/40)
	for _, s := range strokes {
		cx := int(math.Mod(float64(p.tick)*s.speed, float64(b.Width)))
		cy := int(s.row * float64(b.Height))
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius * 4; dx <= radius*4; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
					continue
				}
				b.Set(x, y, s.r, s.g, s.b, 255)
			}
		}
	}
	p.tick++
	return b, nil
}

// Close is a no-op.
func (p *Pattern) Close() error { return nil }
