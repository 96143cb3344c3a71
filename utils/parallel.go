package utils

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// RunParallel calls work for every index in [0, size) with at most ParallelFactor calls in flight.
// The first error cancels the context handed to the remaining calls and is returned.
func RunParallel(ctx context.Context, size int, work func(ctx context.Context, idx int) error) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(ParallelFactor)
	for i := 0; i < size; i++ {
		idx := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return work(ctx, idx)
		})
	}
	return group.Wait()
}
