package capture

import (
	"context"
	"crypto/md5"

	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// Dedup wraps a source and drops frames identical to the previous one.
// After forceEvery consecutive drops a duplicate is passed through so that
// signature changes still reach the display on a static scene.
type Dedup struct {
	Source
	forceEvery int
	lastHash   [16]byte
	primed     bool
	skipped    int
	dropped    uint64
}

// NewDedup wraps src. forceEvery <= 0 never forces a duplicate through.
func NewDedup(src Source, forceEvery int) *Dedup {
	return &Dedup{Source: src, forceEvery: forceEvery}
}

// Next returns the next frame that differs from its predecessor.
func (d *Dedup) Next(ctx context.Context) (*frame.Buffer, error) {
	for {
		buf, err := d.Source.Next(ctx)
		if err != nil {
			return nil, err
		}
		hash := md5.Sum(buf.Pix)
		if d.primed && hash == d.lastHash && (d.forceEvery <= 0 || d.skipped < d.forceEvery) {
			d.skipped++
			d.dropped++
			continue
		}
		d.lastHash, d.primed, d.skipped = hash, true, 0
		return buf, nil
	}
}

// Dropped returns how many duplicates were skipped.
func (d *Dedup) Dropped() uint64 { return d.dropped }
