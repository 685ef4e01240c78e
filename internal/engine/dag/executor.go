package dag

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor is a fixed-size worker pool.
type Executor struct {
	group *errgroup.Group
}

// NewExecutor creates a pool running at most concurrency jobs at once.
func NewExecutor(concurrency int) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	return &Executor{group: g}
}

// Submit runs job on the pool. It blocks while every worker is busy.
func (e *Executor) Submit(ctx context.Context, job func(context.Context)) {
	e.group.Go(func() error {
		job(ctx)
		return nil
	})
}

// Wait blocks until every submitted job has returned.
func (e *Executor) Wait() {
	_ = e.group.Wait()
}
