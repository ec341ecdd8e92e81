// Package selectbuffer picks whichever of a set of attached buffers
// next has a remote update ready, for editors that want to dispatch on
// "something changed" rather than polling every buffer controller in
// turn. One poll goroutine runs per candidate buffer; the first winner
// cancels the rest, racing against an optional timeout.
package selectbuffer

import (
	"context"
	"time"

	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Pollable is anything whose readiness can be awaited without
// consuming it; *buffer.Controller satisfies this.
type Pollable interface {
	Poll(ctx context.Context) error
}

type result[T Pollable] struct {
	candidate T
	err       error
	timedOut  bool
}

// Select blocks until one of candidates has a value ready to receive,
// returning it. If timeout is positive and elapses first, it returns
// (zero value, nil). If every candidate errors out while polling
// (and the timeout, if any, has not yet fired), it returns
// codempErrors.ErrUnfulfilled.
func Select[T Pollable](ctx context.Context, candidates []T, timeout time.Duration) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, codempErrors.ErrUnfulfilled
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result[T], len(candidates)+1)
	g, gctx := errgroup.WithContext(pollCtx)

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			err := c.Poll(gctx)
			select {
			case results <- result[T]{candidate: c, err: err}:
			case <-pollCtx.Done():
			}
			return nil
		})
	}

	awaiting := len(candidates)
	if timeout > 0 {
		awaiting++
		g.Go(func() error {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			select {
			case <-timer.C:
				select {
				case results <- result[T]{timedOut: true}:
				case <-pollCtx.Done():
				}
			case <-pollCtx.Done():
			}
			return nil
		})
	}

	failed := 0
	for i := 0; i < awaiting; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				failed++
				if failed < len(candidates) {
					continue
				}
				cancel()
				g.Wait()
				return zero, codempErrors.ErrUnfulfilled
			}
			cancel()
			g.Wait()
			return r.candidate, nil
		case <-ctx.Done():
			cancel()
			g.Wait()
			return zero, ctx.Err()
		}
	}

	cancel()
	g.Wait()
	return zero, codempErrors.ErrUnfulfilled
}
