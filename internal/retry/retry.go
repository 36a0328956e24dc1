// Package retry re-runs failing operations with a bounded backoff policy
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// ShouldRetry decides whether an error is worth another attempt.
	// Nil means errs.Retryable.
	ShouldRetry func(error) bool

	// OnRetry is called before sleeping for nextDelay
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// DefaultConfig returns the task policy: 6 attempts, 5s apart, capped at 700s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   6,
		InitialDelay:  5 * time.Second,
		MaxDelay:      700 * time.Second,
		BackoffFactor: 1.0,
	}
}

// FromModel converts the configured policy
func FromModel(c model.RetryConfig) Config {
	cfg := DefaultConfig()
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.InitialDelay > 0 {
		cfg.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		cfg.MaxDelay = c.MaxDelay
	}
	if c.BackoffFactor >= 1 {
		cfg.BackoffFactor = c.BackoffFactor
	}
	return cfg
}

// Do runs fn until it succeeds, returns a permanent error, or the attempts
// run out. Permanent errors are returned as is; exhausted retries wrap the
// last error so its kind stays visible to errs.Is.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = errs.Retryable
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt-1, ctx.Err(), lastErr)
			}
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		default:
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}

		delay = nextDelay(delay, cfg)
	}

	return fmt.Errorf("max retry attempts exceeded: %w", lastErr)
}

func nextDelay(delay time.Duration, cfg Config) time.Duration {
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay = time.Duration(float64(delay) * factor)
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
