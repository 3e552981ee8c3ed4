package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/resilience"
)

func fastSupervise(maxRestarts, healthy int) SuperviseOptions {
	return SuperviseOptions{
		MaxRestarts:   maxRestarts,
		HealthyFrames: healthy,
		Retry:         resilience.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Breaker:       resilience.BreakerConfig{Threshold: 100, ResetTimeout: time.Millisecond},
	}
}

func TestSupervisorReopensClosedSource(t *testing.T) {
	opens := 0
	sup := Supervise(func(context.Context) (Source, error) {
		opens++
		return NewPattern(8, 8, 0).Limit(2), nil
	}, fastSupervise(2, 1))
	defer sup.Close()

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, err := sup.Next(ctx)
		require.NoError(t, err, "frame %d", i)
	}

	_, err := sup.Next(ctx)
	assert.True(t, apperr.IsCode(err, apperr.SourceClosed))
	assert.Equal(t, 3, opens)
	assert.Equal(t, int64(2), sup.Restarts())
}

func TestSupervisorRetriesUnavailableOpen(t *testing.T) {
	attempts := 0
	sup := Supervise(func(context.Context) (Source, error) {
		attempts++
		if attempts < 3 {
			return nil, apperr.New(apperr.SourceUnavailable, "camera busy")
		}
		return NewPattern(8, 8, 0), nil
	}, fastSupervise(0, 1))

	_, err := sup.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Zero(t, sup.Restarts())
}

func TestSupervisorStopsOnConfigError(t *testing.T) {
	attempts := 0
	sup := Supervise(func(context.Context) (Source, error) {
		attempts++
		return nil, apperr.New(apperr.ConfigInvalid, "no input")
	}, fastSupervise(0, 1))

	_, err := sup.Next(context.Background())
	assert.True(t, apperr.IsCode(err, apperr.ConfigInvalid))
	assert.Equal(t, 1, attempts)
}

func TestSupervisorBreakerOpensOnFlappingSource(t *testing.T) {
	opts := fastSupervise(0, 5)
	opts.Breaker = resilience.BreakerConfig{Threshold: 2, ResetTimeout: time.Hour}
	sup := Supervise(func(context.Context) (Source, error) {
		return NewPattern(8, 8, 0).Limit(1), nil
	}, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Two short-lived sessions trip the breaker; the third open waits out
	// the cool-down until the context expires.
	_, err := sup.Next(ctx)
	require.NoError(t, err)
	_, err = sup.Next(ctx)
	require.NoError(t, err)
	_, err = sup.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, resilience.Open, sup.BreakerState())
}

func TestSupervisorHonoursContext(t *testing.T) {
	sup := Supervise(func(context.Context) (Source, error) {
		return NewPattern(8, 8, 1), nil
	}, fastSupervise(0, 1))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := sup.Next(ctx)
	require.NoError(t, err)
	cancel()
	_, err = sup.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sup.Restarts())
}
