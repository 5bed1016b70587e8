// Package batch runs bounded-concurrency work over ordered collections.
//
// Work items start as soon as a slot frees up (a sliding window), never in
// lock-step groups, and results are always handed back in input order.
package batch

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Chunk splits items into contiguous chunks of at most size elements.
// The chunks share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Indexed tags a value with the input position it was produced for.
type Indexed[R any] struct {
	Index int
	Value R
}

// All calls fn for every item with at most limit calls in flight and returns
// the results in input order.
//
// The first error cancels the context passed to the remaining calls, stops
// new calls from starting, and is returned; no partial results are returned
// with it.
func All[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	results := make([]R, len(items))
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The group context is canceled by Wait; only the caller's context
	// matters here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Each calls fn for every item with at most limit calls in flight. A call
// cannot fail the batch; fn reports failure in its own result type.
//
// Results are collected as calls complete, then sorted back into input order.
func Each[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) R) []R {
	if len(items) == 0 {
		return nil
	}

	done := make(chan Indexed[R], len(items))
	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, item := range items {
		g.Go(func() error {
			done <- Indexed[R]{Index: i, Value: fn(ctx, i, item)}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // calls never return errors
	close(done)

	collected := make([]Indexed[R], 0, len(items))
	for r := range done {
		collected = append(collected, r)
	}
	slices.SortFunc(collected, func(a, b Indexed[R]) int {
		return a.Index - b.Index
	})

	results := make([]R, len(collected))
	for i, r := range collected {
		results[i] = r.Value
	}
	return results
}
