package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunnerRun(t *testing.T) {
	r := NewRunner(zaptest.NewLogger(t))
	results, err := r.Run(context.Background(), Options{
		Cases:      []Case{{1, 0, 0}, {5, 1, 1}},
		Iterations: 50,
		Warmup:     5,
		Multicall:  true,
	})
	require.NoError(t, err)
	// 2 个策略 x (2 个用例 + 4 个 multicall 组合)
	require.Len(t, results, 12)

	runID := results[0].RunID
	assert.NotEmpty(t, runID)
	for _, res := range results {
		assert.Equal(t, runID, res.RunID)
		assert.Equal(t, int64(50), res.Iterations, res.Name)
		assert.Zero(t, res.Errors, res.Name)
		assert.False(t, res.Truncated)
		assert.Greater(t, res.Mean, 0.0, res.Name)
		assert.LessOrEqual(t, res.Min, res.P50)
		assert.LessOrEqual(t, res.P50, res.P99)
		assert.LessOrEqual(t, res.P99, res.Max)
		assert.Greater(t, res.OpsPerSec, 0.0)
	}
	assert.Equal(t, "call_hook[generic-001-000-000]", results[0].Name)
	assert.Equal(t, "multicall[compiled-hooks=100-wrappers=100]", results[len(results)-1].Name)
}

func TestRunnerRejectsZeroIterations(t *testing.T) {
	_, err := NewRunner(nil).Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(nil).Run(ctx, Options{Cases: []Case{{1, 0, 0}}, Iterations: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestRunnerMaxDuration(t *testing.T) {
	results, err := NewRunner(nil).Run(context.Background(), Options{
		Cases:       []Case{{1, 1, 5}},
		Strategies:  []Strategy{Generic},
		Iterations:  100_000_000,
		MaxDuration: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Truncated)
	assert.Less(t, results[0].Iterations, int64(100_000_000))
	assert.Zero(t, results[0].Iterations%checkEvery)
}
