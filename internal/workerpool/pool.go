// Package workerpool spawns a caller-chosen number of workers (the
// evaluator passes one per hardware thread by default), runs a closure
// in each, and joins. Built on golang.org/x/sync/errgroup so a
// worker error (there are none in the evaluator's pure-CPU loop, but
// the helper stays general) still gets a definite join point.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run spawns n goroutines, each invoking fn with its worker index
// (0..n-1), and blocks until every one returns. fn's own error return,
// if any, is the first non-nil one observed.
func Run(ctx context.Context, n int, fn func(ctx context.Context, workerID int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		workerID := i
		g.Go(func() error {
			return fn(gctx, workerID)
		})
	}
	return g.Wait()
}
