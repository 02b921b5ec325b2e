// Package retry runs operations against storage with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and how fast an operation is retried.
type Policy struct {
	MaxTries    uint
	Initial     time.Duration
	MaxInterval time.Duration
}

// DefaultPolicy gives three attempts starting at 50ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxTries:    3,
		Initial:     50 * time.Millisecond,
		MaxInterval: 500 * time.Millisecond,
	}
}

// NoRetry runs the operation once.
func NoRetry() Policy {
	return Policy{MaxTries: 1}
}

// Do runs op until it succeeds, returns a permanent error, or the policy is spent.
// Context cancellation is never retried.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	if p.MaxTries <= 1 {
		v, err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return v, perm.Err
		}
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxTries))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
