// Package capture supplies camera frames to the pipeline.
package capture

import (
	"context"
	"strings"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// Source yields frames one at a time. The returned buffer is only valid
// until the next call to Next. A finished source returns SourceClosed.
type Source interface {
	Next(ctx context.Context) (*frame.Buffer, error)
	Close() error
}

// Kind names a source implementation.
type Kind string

const (
	KindPattern Kind = "pattern"
	KindFFmpeg  Kind = "ffmpeg"
	KindImage   Kind = "image"
)

// Options selects and parameterises a source.
type Options struct {
	Kind      Kind
	Input     string // device, URL or file
	Format    string // ffmpeg input format, e.g. v4l2 or avfoundation
	Width     int
	Height    int
	FrameRate float64
	// Dedup drops byte-identical consecutive frames, letting one through
	// every ForceEvery drops.
	Dedup      bool
	ForceEvery int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FrameRate <= 0 {
		o.FrameRate = DefaultFrameRate
	}
	return o
}

// ParseKind validates a source kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindPattern, nil
	case KindPattern, KindFFmpeg, KindImage:
		return k, nil
	}
	return "", apperr.Newf(apperr.ConfigInvalid, "unknown source %q", s)
}

// Open starts the source described by opts.
func Open(ctx context.Context, opts Options) (Source, error) {
	opts = opts.withDefaults()
	var (
		src Source
		err error
	)
	switch opts.Kind {
	case KindPattern, "":
		src = NewPattern(opts.Width, opts.Height, opts.FrameRate)
	case KindFFmpeg:
		src, err = OpenFFmpeg(ctx, opts)
	case KindImage:
		src, err = OpenImage(opts.Input, opts.FrameRate)
	default:
		return nil, apperr.Newf(apperr.ConfigInvalid, "unknown source %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}
	if opts.Dedup {
		src = NewDedup(src, opts.ForceEvery)
	}
	return src, nil
}
