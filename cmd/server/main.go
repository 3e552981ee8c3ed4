// Ink glow server - captures UV-lit frames, isolates fluorescent ink and
// streams the composed result over WebSocket
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/inkglow/internal/capture"
	"github.com/GriffinCanCode/inkglow/internal/config"
	"github.com/GriffinCanCode/inkglow/internal/pipeline"
	"github.com/GriffinCanCode/inkglow/internal/server"
	"github.com/GriffinCanCode/inkglow/internal/signature"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	stages, err := cfg.Pipeline()
	if err != nil {
		slog.Error("invalid pipeline configuration", "error", err)
		os.Exit(1)
	}
	store := signature.NewStore(cfg.Signatures())
	pipe, err := pipeline.New(stages, store)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	srcOpts, err := cfg.SourceOptions()
	if err != nil {
		slog.Error("invalid source configuration", "error", err)
		os.Exit(1)
	}
	source := capture.Supervise(func(ctx context.Context) (capture.Source, error) {
		return capture.Open(ctx, srcOpts)
	}, cfg.SuperviseOptions())
	defer func() { _ = source.Close() }()

	srv := server.New(pipe, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		ForceEvery:     cfg.BroadcastForceEvery,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame loop; a source that cannot be kept alive ends the process.
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := pipe.Run(ctx, source, srv.Publish)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("capture stopped", "error", err, "restarts", source.Restarts())
			stop()
		}
	}()

	// WebSocket writes carry their own deadlines, so the server sets none.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("inkglow server starting",
			"http", cfg.HTTPAddr,
			"source", srcOpts.Kind,
			"mode", stages.Classify.Mode.String(),
			"signatures", store.Snapshot().Labels(),
		)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	<-done
	slog.Info("shutdown complete", "frames", pipe.Status().Frames)
}
