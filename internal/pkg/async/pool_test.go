package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstatus/internal-analytics/internal/pkg/async"
)

func TestExecuteCollectsAllResults(t *testing.T) {
	pool := async.NewPool(3)

	tasks := []async.Task{
		{Name: "a", Execute: func(ctx context.Context) (interface{}, error) { return 1, nil }},
		{Name: "b", Execute: func(ctx context.Context) (interface{}, error) { return 2, nil }},
		{Name: "c", Execute: func(ctx context.Context) (interface{}, error) { return 3, nil }},
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results["a"].Data)
	assert.Equal(t, 2, results["b"].Data)
	assert.Equal(t, 3, results["c"].Data)
	assert.NoError(t, async.FirstError(results))
}

func TestExecuteCancelsSetOnFirstError(t *testing.T) {
	pool := async.NewPool(2)
	boom := errors.New("boom")

	tasks := []async.Task{
		{Name: "failing", Execute: func(ctx context.Context) (interface{}, error) {
			return nil, boom
		}},
		{Name: "slow", Execute: func(ctx context.Context) (interface{}, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "too late", nil
			}
		}},
	}

	start := time.Now()
	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 2)

	// The slow task observed cancellation instead of running out the clock.
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, async.FirstError(results), boom)
}

func TestFirstErrorPrefersRootCauseOverCancellation(t *testing.T) {
	boom := errors.New("boom")
	results := map[string]async.Result{
		"canceled": {Name: "canceled", Err: context.Canceled},
		"failed":   {Name: "failed", Err: boom},
		"ok":       {Name: "ok", Data: 1},
	}
	assert.ErrorIs(t, async.FirstError(results), boom)
}

func TestExecuteRespectsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := async.NewPool(1)
	results := pool.Execute(ctx, []async.Task{
		{Name: "a", Execute: func(ctx context.Context) (interface{}, error) {
			return nil, ctx.Err()
		}},
	})
	require.Len(t, results, 1)
	assert.Error(t, async.FirstError(results))
}
