// Package retry re-runs transient remote calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/metrics"
	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy bounds the attempts of a single operation. The wait before retry n
// (counting from 0) is BaseDelay * 2^n, without jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Operation labels metrics; OnRetry observes every scheduled wait.
	Operation string
	Metrics   *metrics.RetryMetrics
	OnRetry   func(attempt int, delay time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Named returns a copy of p labelled with operation.
func (p Policy) Named(operation string) Policy {
	p.Operation = operation
	return p
}

// Retryable reports whether err is worth another attempt. Client errors (4xx)
// and context cancellation are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.IsClientError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do runs op until it succeeds, fails with a non-retryable error, or runs out
// of attempts. The last observed error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		result    T
		retries   int
		exhausted bool
	)

	backoff := goretry.WithMaxRetries(uint64(attempts-1), exponential(p.BaseDelay))
	observed := goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := backoff.Next()
		if stop {
			exhausted = true
			return 0, true
		}
		if p.OnRetry != nil {
			p.OnRetry(retries, delay)
		}
		p.Metrics.IncRetry(p.Operation)
		retries++
		return delay, false
	})

	err := goretry.Do(ctx, observed, func(ctx context.Context) error {
		value, err := op(ctx)
		if err == nil {
			result = value
			return nil
		}
		if !Retryable(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
	if err != nil {
		if exhausted {
			p.Metrics.IncExhausted(p.Operation)
		}
		var zero T
		return zero, err
	}
	return result, nil
}

func exponential(base time.Duration) goretry.Backoff {
	if base <= 0 {
		return goretry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return goretry.NewExponential(base)
}
