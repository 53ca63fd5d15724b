package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_AllSucceed verifies that every task runs exactly once and the
// pool returns nil when nothing fails.
func TestRun_AllSucceed(t *testing.T) {
	var ran atomic.Int32

	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}
	}

	err := NewPool(2).Run(context.Background(), tasks...)
	require.NoError(t, err)
	assert.Equal(t, int32(5), ran.Load())
}

// TestRun_FirstErrorPropagates verifies the fail-fast join: the failing
// task's error is returned verbatim and sibling results are discarded.
func TestRun_FirstErrorPropagates(t *testing.T) {
	boom := errors.New("pull failed")

	err := NewPool(2).Run(context.Background(),
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error { return nil },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

// TestRun_NoTasks verifies the empty-input boundary.
func TestRun_NoTasks(t *testing.T) {
	assert.NoError(t, NewPool(2).Run(context.Background()))
}

// TestRun_SingleTask verifies the single-task fast path still surfaces
// the task's error.
func TestRun_SingleTask(t *testing.T) {
	boom := errors.New("single failure")

	err := NewPool(2).Run(context.Background(),
		func(ctx context.Context) error { return boom },
	)

	assert.ErrorIs(t, err, boom)
}

// TestRun_CanceledContext verifies that a canceled caller context is not
// swallowed: the cancellation surfaces as the returned error.
func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPool(2).Run(ctx,
		func(ctx context.Context) error { return ctx.Err() },
		func(ctx context.Context) error { return ctx.Err() },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestDefaultWorkers verifies the concurrency bounds: never below the
// minimum, never above the cap.
func TestDefaultWorkers(t *testing.T) {
	workers := DefaultWorkers()
	assert.GreaterOrEqual(t, workers, int64(minWorkers))
	assert.LessOrEqual(t, workers, int64(maxWorkersCap))
}
