// Package runner runs indexed tasks concurrently.
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work, called with its index in [0, n).
type Task func(ctx context.Context, index int) error

// Times runs the task n times concurrently, with at most limit tasks in flight (no limit when limit <= 0),
// and waits for all of them to finish.
//
// The first error cancels the context given to the other tasks and is returned. Tasks not started yet
// when the context is cancelled are skipped.
func Times(parentCtx context.Context, n int, limit int, task Task) error {
	group, ctx := errgroup.WithContext(parentCtx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		index := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return task(ctx, index)
		})
	}

	return group.Wait()
}
