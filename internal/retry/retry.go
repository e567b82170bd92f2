// Package retry provides backoff helpers for transient failures.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/errs"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultConfig returns the retry configuration used for transient fetch
// failures inside a batch
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// Do executes fn with exponential backoff. Policy refusals and config errors
// are never retried; everything else is considered transient.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return nil
		}
		lastErr = err

		if !retryable(err) {
			log.Debug().Err(err).Msg("Error is not retryable")
			return err
		}

		if attempt < cfg.MaxAttempts-1 {
			backoff := backoffFor(attempt, cfg)
			log.Debug().
				Int("attempt", attempt+1).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Once runs fn and, if it fails retryably, waits cooldown and runs it exactly
// one more time. This is the batch-level policy: a second failure is final.
func Once(ctx context.Context, cooldown time.Duration, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if !retryable(err) {
		return err
	}

	log.Warn().Err(err).Dur("cooldown", cooldown).Msg("Attempt failed, retrying once after cooldown")

	select {
	case <-time.After(cooldown):
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn()
}

func backoffFor(attempt int, cfg Config) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	return time.Duration(d)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errs.HasCode(err, errs.CodeBlockedByPolicy) || errs.HasCode(err, errs.CodeConfig) {
		return false
	}
	return true
}
