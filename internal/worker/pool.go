// Package worker implements a bounded pool for CPU-bound work such as
// index parsing or Crypt4GH header re-encryption (spec.md §5). Nothing in
// this module submits work to it: the resolver parses indices and
// rewraps headers on the request's own goroutine.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one submitted unit of work.
type Result struct {
	Value interface{}
	Err   error
}

// Pool bounds concurrent CPU-bound work with a buffered semaphore channel.
// Submit never blocks the caller past acquiring a slot; the caller gets a
// future back immediately and can keep servicing context cancellation
// while the work runs.
type Pool struct {
	sem chan struct{}
}

// New builds a Pool allowing at most size units of work to run at once.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit runs fn in a pool goroutine once a slot is free, or returns
// immediately with ctx's error if ctx is canceled first. The returned
// channel receives exactly one Result.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) (interface{}, error)) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
			return
		}
		defer func() { <-p.sem }()

		value, err := fn(ctx)
		out <- Result{Value: value, Err: err}
	}()
	return out
}

// SubmitAll runs every fn concurrently, bounded by the pool's size, and
// waits for all of them; the first error cancels the shared context and is
// returned once every goroutine has exited.
func (p *Pool) SubmitAll(ctx context.Context, fns ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			select {
			case p.sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-p.sem }()
			return fn(gctx)
		})
	}
	return g.Wait()
}
