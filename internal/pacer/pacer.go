// Package pacer spaces out calls to rate-limited collaborators and retries
// failed calls with exponential backoff.
package pacer

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Pacer inserts a randomized delay between operations and retries
// retryable failures.
type Pacer struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries  int
	BaseBackoff time.Duration

	// Retryable decides whether an error is worth another attempt. A nil
	// Retryable retries nothing.
	Retryable func(error) bool

	Logger *slog.Logger

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Pacer with a delay in [min, max] and three retries starting at a two second backoff.
func New(minDelay, maxDelay time.Duration, retryable func(error) bool, logger *slog.Logger) *Pacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		MaxRetries:  3,
		BaseBackoff: 2 * time.Second,
		Retryable:   retryable,
		Logger:      logger,
	}
}

// Delay returns a random duration in [MinDelay, MaxDelay]
func (p *Pacer) Delay() time.Duration {
	if p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + time.Duration(rand.Int64N(int64(p.MaxDelay-p.MinDelay)+1))
}

// Wait sleeps for a random delay, returning early if ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.doSleep(ctx, p.Delay())
}

// Retry runs fn, retrying with exponential backoff while the error is
// retryable. The last error is returned when retries run out.
func (p *Pacer) Retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || p.Retryable == nil || !p.Retryable(err) {
			return lastErr
		}
		if attempt < p.MaxRetries {
			wait := p.BaseBackoff * (1 << uint(attempt))
			p.Logger.WarnContext(ctx, "retrying operation",
				"op", op,
				"attempt", attempt+1,
				"max_retries", p.MaxRetries,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
			if err := p.doSleep(ctx, wait); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (p *Pacer) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
