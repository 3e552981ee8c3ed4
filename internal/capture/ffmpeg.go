package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/frame"
)

// FFmpeg reads raw RGBA frames from an ffmpeg child process: a camera
// device, a network stream or a video file.
type FFmpeg struct {
	buf    *frame.Buffer
	r      *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	exit   error
	stderr bytes.Buffer
}

func errClosed(msg string) error {
	return apperr.New(apperr.SourceClosed, msg)
}

// stream builds the ffmpeg invocation for opts writing to w.
func stream(opts Options, w io.Writer) *ffmpeg.Stream {
	in := ffmpeg.KwArgs{"loglevel": "error"}
	if opts.Format != "" {
		in["f"] = opts.Format
		in["framerate"] = strconv.FormatFloat(opts.FrameRate, 'f', -1, 64)
	}
	return ffmpeg.Input(opts.Input, in).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgba",
			"vf":      fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height),
			"r":       strconv.FormatFloat(opts.FrameRate, 'f', -1, 64),
		}).
		WithOutput(w)
}

// OpenFFmpeg starts ffmpeg for opts. Frames are scaled to opts.Width x
// opts.Height so the buffer size is fixed.
func OpenFFmpeg(ctx context.Context, opts Options) (*FFmpeg, error) {
	opts = opts.withDefaults()
	if opts.Input == "" {
		return nil, apperr.New(apperr.ConfigInvalid, "ffmpeg source needs an input")
	}
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return nil, apperr.Wrap(err, apperr.SourceUnavailable, "ffmpeg not found")
	}

	ctx, cancel := context.WithCancel(ctx)
	r, w := io.Pipe()
	f := &FFmpeg{
		buf:    frame.New(opts.Width, opts.Height),
		r:      r,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	cmd := stream(opts, w).WithErrorOutput(&lockedWriter{mu: &f.mu, w: &f.stderr})
	cmd.Context = ctx
	go func() {
		defer close(f.done)
		err := cmd.Run()
		f.mu.Lock()
		f.exit = err
		f.mu.Unlock()
		if err == nil {
			err = io.EOF
		}
		w.CloseWithError(err)
	}()

	slog.Info("ffmpeg source started", "input", opts.Input, "format", opts.Format,
		"width", opts.Width, "height", opts.Height, "fps", opts.FrameRate)
	return f, nil
}

// Next reads one whole frame.
func (f *FFmpeg) Next(ctx context.Context) (*frame.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(f.r, f.buf.Pix); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.mu.Lock()
		exit, stderr := f.exit, f.stderr.String()
		f.mu.Unlock()
		if exit == nil && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return nil, apperr.Wrap(err, apperr.SourceClosed, "ffmpeg stream ended")
		}
		return nil, apperr.Wrap(err, apperr.SourceClosed, "ffmpeg exited").
			WithMetadata("stderr", tail(stderr, 512))
	}
	return f.buf, nil
}

// Close stops ffmpeg and waits for it to exit.
func (f *FFmpeg) Close() error {
	f.cancel()
	f.r.Close()
	<-f.done
	return nil
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
