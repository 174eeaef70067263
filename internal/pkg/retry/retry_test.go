package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayProgression(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1*time.Second, cfg.Delay(1))
	assert.Equal(t, 2*time.Second, cfg.Delay(2))
	assert.Equal(t, 4*time.Second, cfg.Delay(3))
	assert.Equal(t, 8*time.Second, cfg.Delay(4))

	// The cap kicks in once the exponent overshoots.
	assert.Equal(t, 60*time.Second, cfg.Delay(10))

	// Nonsense attempts clamp to the first delay.
	assert.Equal(t, 1*time.Second, cfg.Delay(0))
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}

	attempts := 0
	err := Do(context.Background(), cfg, func(_ context.Context, attempt int) error {
		attempts = attempt
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2}

	err := Do(context.Background(), cfg, func(context.Context, int) error {
		return errors.New("always broken")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "always broken")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	cfg := Config{MaxAttempts: 10, InitialDelay: time.Hour, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func(context.Context, int) error {
		attempts++
		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoFirstAttemptHasNoDelay(t *testing.T) {
	cfg := Config{MaxAttempts: 1, InitialDelay: time.Hour, Multiplier: 2}

	start := time.Now()
	err := Do(context.Background(), cfg, func(context.Context, int) error { return nil })
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
