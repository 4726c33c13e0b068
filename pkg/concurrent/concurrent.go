// Package concurrent runs CPU-bound work over slices on a bounded number of
// goroutines. Results always keep the input order.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/kindstore/pkg/sequence"
)

// chunks splits n items into at most workers contiguous [lo, hi) ranges.
func chunks(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}

// ForEachChunk calls fn once per contiguous chunk of [0, n) on up to workers
// goroutines. The first error cancels ctx for the remaining chunks and is
// returned.
func ForEachChunk(ctx context.Context, n, workers int, fn func(ctx context.Context, lo, hi int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range chunks(n, workers) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, c[0], c[1])
		})
	}
	return g.Wait()
}

// cancelCheckEvery is how many elements a chunk processes between checks
// of its context.
const cancelCheckEvery = 256

// ParallelMap applies fn to every element of i, preserving order. It stops
// early and returns ctx's error once ctx is done.
func ParallelMap[T, R any](ctx context.Context, i *sequence.Iterator[T], workers int, fn func(T) R) ([]R, error) {
	in := i.Collect()
	out := make([]R, len(in))
	err := ForEachChunk(ctx, len(in), workers, func(ctx context.Context, lo, hi int) error {
		for idx := lo; idx < hi; idx++ {
			if (idx-lo)%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			out[idx] = fn(in[idx])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParallelFilter evaluates keep on every element of i in parallel and returns
// the kept elements in their original order.
func ParallelFilter[T any](ctx context.Context, i *sequence.Iterator[T], workers int, keep func(T) bool) ([]T, error) {
	in := i.Collect()
	marks, err := ParallelMap(ctx, sequence.From(in), workers, keep)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(in))
	for idx, ok := range marks {
		if ok {
			out = append(out, in[idx])
		}
	}
	return out, nil
}
