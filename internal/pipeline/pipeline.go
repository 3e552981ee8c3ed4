// Package pipeline runs frames through classification, denoising and
// composition and owns the calibration entry points.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/inkglow/internal/calibrate"
	"github.com/GriffinCanCode/inkglow/internal/capture"
	"github.com/GriffinCanCode/inkglow/internal/classify"
	"github.com/GriffinCanCode/inkglow/internal/compose"
	"github.com/GriffinCanCode/inkglow/internal/denoise"
	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
	"github.com/GriffinCanCode/inkglow/internal/signature"
	"github.com/GriffinCanCode/inkglow/internal/syncx"
	"github.com/GriffinCanCode/inkglow/internal/trace"
)

// Config holds the parameters of every stage.
type Config struct {
	Classify  classify.Config
	Denoise   denoise.Policy
	Compose   compose.Options
	Calibrate calibrate.Options
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		Classify:  classify.DefaultConfig(),
		Denoise:   denoise.Tight(),
		Compose:   compose.DefaultOptions(),
		Calibrate: calibrate.DefaultOptions(),
	}
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Frames      uint64                  `json:"frames"`
	Dropped     uint64                  `json:"dropped"`
	Mode        string                  `json:"mode"`
	Brightness  float64                 `json:"brightness"`
	Mirrored    bool                    `json:"mirrored"`
	Calibration string                  `json:"calibration"`
	Pending     signature.Label         `json:"pending,omitempty"`
	Counts      map[signature.Label]int `json:"counts"`
	NoActive    bool                    `json:"no_active"`
	Overlaps    int                     `json:"overlaps"`
	Denoised    int                     `json:"denoised"`
}

type frameStats struct {
	classify.Stats
	denoised int
}

// Pipeline processes one frame at a time. Calibration samples are taken
// under the same lock, so a sample never interleaves with a frame.
type Pipeline struct {
	store      *signature.Store
	session    *calibrate.Session
	classifier *syncx.Guard[*classify.Classifier]
	compositor *syncx.Guard[*compose.Compositor]
	pool       *frame.Pool

	mu       sync.Mutex // frame lock
	denoiser *denoise.Denoiser
	last     *frame.Buffer

	output  atomic.Pointer[compose.Output]
	stats   atomic.Pointer[frameStats]
	frames  atomic.Uint64
	dropped atomic.Uint64
}

// New builds a pipeline reading signatures from store.
func New(cfg Config, store *signature.Store) (*Pipeline, error) {
	c, err := classify.New(cfg.Classify)
	if err != nil {
		return nil, err
	}
	comp, err := compose.New(cfg.Compose)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:      store,
		session:    calibrate.NewSession(store, cfg.Calibrate),
		classifier: syncx.NewGuard(c),
		compositor: syncx.NewGuard(comp),
		pool:       frame.NewPool(),
		denoiser:   denoise.New(cfg.Denoise),
	}, nil
}

// Process classifies, denoises and composes src. A malformed frame is
// dropped: the previous output (possibly nil) is returned with the error.
func (p *Pipeline) Process(ctx context.Context, src *frame.Buffer) (*compose.Output, error) {
	ctx, span := trace.StartSpan(ctx, "process_frame")
	log := trace.Logger(ctx)

	if err := src.Validate(); err != nil {
		span.End()
		p.dropped.Add(1)
		log.Warn("dropping frame", "error", err)
		return p.output.Load(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil || !p.last.SameSize(src) {
		p.last = src.Clone()
	} else {
		copy(p.last.Pix, src.Pix)
	}

	set := p.store.Snapshot()
	mask := p.pool.Get(src.Width, src.Height)
	defer p.pool.Put(mask)

	stats, err := p.classifier.Load().ClassifyFrame(src, mask, set)
	if err != nil {
		span.End()
		p.dropped.Add(1)
		log.Warn("dropping frame", "error", err)
		return p.output.Load(), err
	}
	removed := p.denoiser.Denoise(mask)

	out, err := p.compositor.Load().Compose(mask)
	if err != nil {
		span.End()
		p.dropped.Add(1)
		log.Warn("dropping frame", "error", err)
		return p.output.Load(), err
	}

	n := p.frames.Add(1)
	p.output.Store(out)
	p.stats.Store(&frameStats{Stats: stats, denoised: removed})

	span.SetAttr("frame", n)
	span.SetAttr("ink", out.Counts)
	span.SetAttr("denoised", removed)
	span.SetAttr("overlaps", stats.Overlaps)
	span.End()
	if stats.NoActive {
		log.Debug("no active signatures", "span", span)
	} else {
		log.Debug("frame processed", "span", span)
	}
	return out, nil
}

// Output returns the most recent composed frame, or nil.
func (p *Pipeline) Output() *compose.Output { return p.output.Load() }

// Run pulls frames from src until ctx is done or src closes, handing each
// composed frame to sink. Frames that fail are skipped, never retried.
func (p *Pipeline) Run(ctx context.Context, src capture.Source, sink func(*compose.Output)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := src.Next(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if apperr.IsCode(err, apperr.InvalidFrame) {
				p.dropped.Add(1)
				slog.Warn("capture produced a bad frame", "error", err)
				continue
			}
			return err
		}
		out, err := p.Process(ctx, buf)
		if err != nil {
			continue
		}
		if sink != nil {
			sink(out)
		}
	}
}

// BeginCalibration arms a calibration for label.
func (p *Pipeline) BeginCalibration(label signature.Label) error {
	return p.session.Begin(label)
}

// CancelCalibration aborts a pending calibration.
func (p *Pipeline) CancelCalibration() error {
	return p.session.Cancel()
}

// CalibrationState returns the session state and the pending label.
func (p *Pipeline) CalibrationState() (calibrate.State, signature.Label) {
	label, _ := p.session.Pending()
	return p.session.State(), label
}

// OnCalibration registers a hook for calibration state changes.
func (p *Pipeline) OnCalibration(fn func(calibrate.State, signature.Label)) {
	p.session.OnChange(fn)
}

// Sample takes the pending calibration sample at (x, y) in frame space from
// the most recent valid frame.
func (p *Pipeline) Sample(x, y int) (signature.Signature, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Sample(p.last, x, y)
}

// SampleDisplay is Sample with coordinates in the last output's display
// space, undoing scale and mirroring.
func (p *Pipeline) SampleDisplay(x, y float64) (signature.Signature, error) {
	out := p.output.Load()
	if out == nil {
		return p.Sample(int(x), int(y))
	}
	pt := out.ToFrame(x, y)
	return p.Sample(pt.X, pt.Y)
}

// Signatures returns the current signature snapshot.
func (p *Pipeline) Signatures() *signature.Set { return p.store.Snapshot() }

// Classifier returns the live classifier.
func (p *Pipeline) Classifier() *classify.Classifier { return p.classifier.Load() }

// SetMode switches the detection strategy from the next frame on.
func (p *Pipeline) SetMode(mode classify.Mode) error {
	_, err := p.classifier.Update(func(c *classify.Classifier) (*classify.Classifier, error) {
		return c.WithMode(mode)
	})
	return err
}

// SetBrightness changes the ink boost from the next frame on.
func (p *Pipeline) SetBrightness(brightness float64) error {
	_, err := p.classifier.Update(func(c *classify.Classifier) (*classify.Classifier, error) {
		return c.WithBrightness(brightness)
	})
	return err
}

// SetMirrored toggles mirroring from the next frame on.
func (p *Pipeline) SetMirrored(mirrored bool) {
	_, _ = p.compositor.Update(func(c *compose.Compositor) (*compose.Compositor, error) {
		return c.WithMirrored(mirrored), nil
	})
}

// FrameSize returns the size of the last valid frame.
func (p *Pipeline) FrameSize() (image.Point, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return image.Point{}, false
	}
	return image.Pt(p.last.Width, p.last.Height), true
}

// Status reports counters, tunables and the last frame's statistics.
func (p *Pipeline) Status() Status {
	state, pending := p.CalibrationState()
	cfg := p.classifier.Load().Config()
	st := Status{
		Frames:      p.frames.Load(),
		Dropped:     p.dropped.Load(),
		Mode:        cfg.Mode.String(),
		Brightness:  cfg.Brightness,
		Mirrored:    p.compositor.Load().Options().Mirrored,
		Calibration: state.String(),
		Pending:     pending,
		Counts:      map[signature.Label]int{},
	}
	if out := p.output.Load(); out != nil {
		st.Counts = out.Counts
	}
	if fs := p.stats.Load(); fs != nil {
		st.NoActive = fs.NoActive
		st.Overlaps = fs.Overlaps
		st.Denoised = fs.denoised
	}
	return st
}
