package objbuilder

import (
	"context"
	"fmt"

	"github.com/a-peyrard/objbuilder/option"
	"github.com/a-peyrard/objbuilder/runner"
)

type (
	ManyOptions struct {
		concurrency int
	}
)

// WithConcurrency limits the number of builds running at the same time.
// By default, every build runs in its own goroutine.
func WithConcurrency(concurrency int) option.Option[ManyOptions] {
	return func(opts *ManyOptions) {
		opts.concurrency = concurrency
	}
}

// BuildMany materializes n independent instances concurrently. Instances are returned
// in a slice indexed by build number.
//
// Every build runs the chain installed when it starts, so registering modifications while
// BuildMany is running can produce instances built from different chains.
// The first failure cancels the builds not started yet and is returned, with no instance.
func BuildMany[T any](ctx context.Context, b *Builder[T], n int, opts ...option.Option[ManyOptions]) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot build a negative number of instances: %d", n)
	}
	options := option.Build(&ManyOptions{}, opts...)

	instances := make([]T, n)
	err := runner.Times(ctx, n, options.concurrency, func(_ context.Context, index int) error {
		instance, err := b.Build()
		if err != nil {
			return fmt.Errorf("failed to build instance #%d:\n\t%w", index, err)
		}
		instances[index] = instance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}
