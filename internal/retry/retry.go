// Package retry decorates collaborator calls with bounded exponential
// backoff. Each call site wraps its operation explicitly with a Policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded exponential backoff.
//
// The first retry waits BaseDelay, each following retry multiplies the
// wait by Multiplier, capped at MaxDelay. The operation runs at most
// MaxAttempts times.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	// ShouldRetry classifies errors. Nil retries everything except
	// context cancellation and errors marked Permanent.
	ShouldRetry func(error) bool

	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(err error, attempt int, wait time.Duration)
}

// DefaultPolicy matches the collaborator defaults: 3 attempts waiting
// 4s then 8s, never more than 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
	}
}

// NoRetry runs operations exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// WithClassifier returns a copy of p using fn to decide retryability.
func (p Policy) WithClassifier(fn func(error) bool) Policy {
	p.ShouldRetry = fn
	return p
}

// WithNotify returns a copy of p calling fn before each retry.
func (p Policy) WithNotify(fn func(err error, attempt int, wait time.Duration)) Policy {
	p.OnRetry = fn
	return p
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, a non-retryable error occurs, the
// attempts are exhausted, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !p.retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, attempt, wait)
		}
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (p Policy) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return true
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.Multiplier
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.MaxInterval = p.MaxDelay
	if eb.MaxInterval < eb.InitialInterval {
		eb.MaxInterval = eb.InitialInterval
	}
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}
