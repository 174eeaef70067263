package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config configures exponential backoff behavior.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the default backoff configuration: 1s, 2s, 4s, 8s,
// capped at 60s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay computes the wait before attempt n (1-based):
// initialDelay * multiplier^(n-1), capped at MaxDelay.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	return time.Duration(d)
}

// Func is an operation that can be retried.
type Func func(ctx context.Context, attempt int) error

// Do runs fn up to cfg.MaxAttempts times, sleeping the backoff delay before
// each attempt after the first. It stops early when the context is done.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(cfg.Delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := fn(ctx, attempt); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
