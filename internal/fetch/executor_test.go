package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-perp-history/internal/solana"
)

// fastPolicy is a DefaultPolicy with millisecond delays so tests complete
// quickly.
func fastPolicy(retriable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		Factor:      2.0,
		Retriable:   retriable,
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	var attempts atomic.Int32
	start := time.Now()
	err := ex.Do(context.Background(), func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return solana.ErrRateLimited
		}
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	// Two backoff sleeps: 5ms then 10ms, no jitter.
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
}

func TestDoExhaustsAttempts(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	var attempts atomic.Int32
	err := ex.Do(context.Background(), func(ctx context.Context) error {
		attempts.Add(1)
		return solana.Transient(errors.New("connection reset"))
	})

	require.Error(t, err)
	assert.True(t, solana.IsRetriable(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoFailsFastOnNonRetriable(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	var attempts atomic.Int32
	err := ex.Do(context.Background(), func(ctx context.Context) error {
		attempts.Add(1)
		return solana.ErrMalformed
	})

	require.ErrorIs(t, err, solana.ErrMalformed)
	assert.Equal(t, int32(1), attempts.Load(), "non-retriable errors must not be retried")
}

func TestDoRespectsContext(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ex.Do(ctx, func(ctx context.Context) error {
		t.Error("op must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoBoundsConcurrency(t *testing.T) {
	ex := NewExecutor(
		WithConcurrency(2),
		WithMinDelay(0),
		WithPolicy(Policy{MaxAttempts: 1}),
	)

	var inFlight, peak atomic.Int32
	items := make([]int, 8)
	results := Map(context.Background(), ex, items, func(ctx context.Context, _ int) (int, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	for _, res := range results {
		require.NoError(t, res.Err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMapPreservesOrderAndIsolatesFailures(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	items := []int{0, 1, 2, 3, 4}
	results := Map(context.Background(), ex, items, func(ctx context.Context, i int) (string, error) {
		if i == 2 {
			return "", solana.ErrMalformed
		}
		return fmt.Sprintf("item-%d", i), nil
	})

	require.Len(t, results, len(items))
	for i, res := range results {
		if i == 2 {
			assert.ErrorIs(t, res.Err, solana.ErrMalformed)
			continue
		}
		require.NoError(t, res.Err, "item %d", i)
		assert.Equal(t, fmt.Sprintf("item-%d", i), res.Value)
	}
}

func TestMapRetriesPerItem(t *testing.T) {
	ex := NewExecutor(
		WithMinDelay(0),
		WithPolicy(fastPolicy(solana.IsRetriable)),
	)

	var flakyAttempts atomic.Int32
	items := []string{"stable", "flaky"}
	results := Map(context.Background(), ex, items, func(ctx context.Context, item string) (string, error) {
		if item == "flaky" && flakyAttempts.Add(1) < 2 {
			return "", solana.ErrRateLimited
		}
		return item, nil
	})

	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err, "flaky item should succeed on retry")
	assert.Equal(t, int32(2), flakyAttempts.Load())
}
