package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default retry parameters.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultFactor      = 2.0
)

// Policy is a reusable retry policy applied uniformly by the executor.
// Retriable decides which errors are worth another attempt; everything else
// fails fast.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Retriable   func(error) bool
}

// DefaultPolicy returns the standard policy with the given retriable
// predicate. A nil predicate retries every failure.
func DefaultPolicy(retriable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Factor:      DefaultFactor,
		Retriable:   retriable,
	}
}

// run executes op under the policy with exponential backoff.
func (p Policy) run(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Factor
	bo.MaxInterval = p.MaxDelay
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.WithMaxRetries(bo, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.Retriable != nil && !p.Retriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
