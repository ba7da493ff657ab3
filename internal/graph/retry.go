package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the exponential backoff used while waiting for the store.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy is used when a zero policy is supplied.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Retry calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The delay doubles after each failed attempt up to MaxDelay.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) error) error {
	policy = policy.normalized()

	attempt := 0
	var lastErr error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		lastErr = fn(ctx, attempt)
		return struct{}{}, lastErr
	},
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(ctx.Err(), lastErr))
	case errors.Is(lastErr, ErrUnavailable):
		return fmt.Errorf("after %d attempts: %w", attempt, lastErr)
	default:
		return fmt.Errorf("%w: after %d attempts: %w", ErrUnavailable, attempt, lastErr)
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval: p.InitialDelay,
		MaxInterval:     p.MaxDelay,
		Multiplier:      2,
	}
}

// Pinger is anything that can verify connectivity to the store.
type Pinger interface {
	VerifyConnectivity(ctx context.Context) error
}

// WarmUp blocks until the store answers a connectivity check or the policy is exhausted.
func WarmUp(ctx context.Context, p Pinger, policy RetryPolicy, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		err := p.VerifyConnectivity(ctx)
		if err != nil {
			logger.Warn("graph store not ready", "attempt", attempt, "error", err)
			return err
		}
		logger.Info("graph store ready", "attempt", attempt)
		return nil
	})
}
