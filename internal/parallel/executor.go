// Package parallel provides a small worker pool for running independent
// tasks concurrently with a fail-fast join.
//
// The pool is used during node bootstrap to warm container images: one task
// per distinct image, all dispatched at once, joined synchronously. The
// first task error aborts the wait and is returned verbatim; results of
// still-running siblings are discarded.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// minWorkers is the lower bound on pool concurrency, so that even
	// single-CPU hosts overlap at least two pulls.
	minWorkers = 2

	// maxWorkersCap bounds concurrency to avoid overwhelming the Docker
	// daemon with simultaneous pulls.
	maxWorkersCap = 8
)

// DefaultWorkers returns the default pool concurrency derived from the
// host CPU count, clamped to [minWorkers, maxWorkersCap].
func DefaultWorkers() int64 {
	numCPU := int64(runtime.NumCPU())

	return min(max(numCPU, minWorkers), maxWorkersCap)
}

// Task is a unit of work executed by the pool. The context passed to the
// task is canceled once any sibling task fails.
type Task func(ctx context.Context) error

// Pool runs tasks concurrently with bounded parallelism.
type Pool struct {
	workers int64
}

// NewPool creates a pool with the given maximum concurrency.
// If workers <= 0, DefaultWorkers() is used.
func NewPool(workers int64) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	return &Pool{workers: workers}
}

// Run executes all tasks and blocks until every task has finished or one
// has failed. The first error encountered is returned; in-flight siblings
// see a canceled context but their results are discarded either way.
// Returns nil when all tasks succeed or no tasks are given.
func (p *Pool) Run(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	if len(tasks) == 1 {
		return tasks[0](ctx)
	}

	sem := semaphore.NewWeighted(p.workers)
	group, groupCtx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		task := task
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				// Acquire only fails when the group context is canceled,
				// i.e. a sibling already failed. Surface the cancellation
				// rather than swallowing it.
				return fmt.Errorf("acquire worker slot: %w", err)
			}
			defer sem.Release(1)

			return task(groupCtx)
		})
	}

	return group.Wait()
}
