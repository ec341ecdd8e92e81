package controller

import (
	"context"
	"sync"

	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"github.com/hexedtech/codemp/pkg/watch"
)

// QueueSize bounds the number of undelivered values a Core holds. Once
// full, the oldest value is dropped: this client favors freshness of
// the latest remote state over completeness of every intermediate one.
const QueueSize = 256

// Core implements the Recv/TryRecv/Poll/Callback/ClearCallback/Stop
// half of Controller[T]. Subsystem workers (buffer, cursor) embed a
// *Core and add their own Send, since what "send" enqueues differs per
// subsystem (a buffer diff vs a cursor position).
type Core[T any] struct {
	mu      sync.Mutex
	queue   []T
	stopped bool

	rev *watch.Cell[uint64]

	cbMu sync.Mutex
	cb   Callback[T]
	self Controller[T]

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCore creates an empty, running Core.
func NewCore[T any]() *Core[T] {
	return &Core[T]{rev: watch.NewCell[uint64](0), stopCh: make(chan struct{})}
}

// SetSelf records the concrete Controller this Core backs, so
// registered callbacks can be handed a usable handle. Called once by
// the owning worker immediately after constructing its controller.
func (c *Core[T]) SetSelf(self Controller[T]) {
	c.cbMu.Lock()
	c.self = self
	c.cbMu.Unlock()
}

// Done is closed once Stop has been called, for the owning worker's
// own select loop to observe alongside Core's public API.
func (c *Core[T]) Done() <-chan struct{} { return c.stopCh }

// Deliver pushes a new value from the actor side, dropping the oldest
// queued value if at capacity, waking any blocked Poll callers and
// firing the registered callback if any.
func (c *Core[T]) Deliver(v T) {
	c.mu.Lock()
	c.queue = append(c.queue, v)
	if len(c.queue) > QueueSize {
		c.queue = c.queue[len(c.queue)-QueueSize:]
	}
	c.mu.Unlock()

	c.rev.Set(c.rev.Get() + 1)
	c.runCallback()
}

func (c *Core[T]) runCallback() {
	c.cbMu.Lock()
	cb, self := c.cb, c.self
	c.cbMu.Unlock()
	if cb != nil && self != nil {
		cb(self)
	}
}

// TryRecv returns the oldest queued value without blocking. ok is
// false when the queue is empty; err is set only once the worker has
// stopped and the queue has fully drained.
func (c *Core[T]) TryRecv() (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) > 0 {
		v := c.queue[0]
		c.queue = c.queue[1:]
		return v, true, nil
	}

	var zero T
	if c.stopped {
		return zero, false, &codempErrors.ChannelError{Send: false}
	}
	return zero, false, nil
}

// Poll blocks until TryRecv would return a value, the worker stops
// with nothing left queued, or ctx is done.
func (c *Core[T]) Poll(ctx context.Context) error {
	for {
		c.mu.Lock()
		ready := len(c.queue) > 0
		stopped := c.stopped
		c.mu.Unlock()

		if ready {
			return nil
		}
		if stopped {
			return &codempErrors.ChannelError{Send: false}
		}

		wake, _ := c.rev.Subscribe()
		select {
		case <-wake:
			continue
		case <-c.stopCh:
			continue // re-check: queue may still hold final values
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Recv returns the next queued value, or waits for a single wake if the
// queue is empty. If a concurrent caller drains the queue between that
// wake and the TryRecv that follows it, Recv does not wait again: it
// returns ErrDeadlocked so the caller retries, preserving single-
// assignment semantics for whichever value was in the queue.
func (c *Core[T]) Recv(ctx context.Context) (T, error) {
	wake, _ := c.rev.Subscribe()
	if v, ok, err := c.TryRecv(); ok || err != nil {
		return v, err
	}
	select {
	case <-wake:
	case <-c.stopCh:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	v, ok, err := c.TryRecv()
	if err != nil {
		return v, err
	}
	if !ok {
		var zero T
		return zero, codempErrors.ErrDeadlocked
	}
	return v, nil
}

// Callback registers cb, replacing any previously registered callback.
func (c *Core[T]) Callback(cb Callback[T]) {
	c.cbMu.Lock()
	c.cb = cb
	c.cbMu.Unlock()
}

// ClearCallback removes any registered callback.
func (c *Core[T]) ClearCallback() {
	c.cbMu.Lock()
	c.cb = nil
	c.cbMu.Unlock()
}

// Stop marks this Core stopped. Returns true the first time it's
// called, false on every call after.
func (c *Core[T]) Stop() bool {
	triggered := false
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
		close(c.stopCh)
		triggered = true
	})
	return triggered
}
