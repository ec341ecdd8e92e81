// Package controller defines the uniform async duplex-stream handle
// exposed by every actor-backed subsystem in this client (buffer,
// cursor): events can be enqueued without blocking via Send, and
// Recv/Poll/TryRecv let a consumer wait for server-originated updates
// either with a blocking call or a manual poll loop.
package controller

import "context"

// Callback is invoked whenever a new value becomes available. It
// receives a handle back to the controller itself, not the value, so
// it can call Recv or TryRecv without the worker holding a reference
// back into caller-owned state.
type Callback[T any] func(Controller[T])

// Controller is an async, threadsafe handle to a generic bidirectional
// stream backed by an actor goroutine.
//
// Prefer a pure Recv consumer awaiting events; when async is not an
// option, a Poll/TryRecv loop works the same way.
type Controller[T any] interface {
	// Send enqueues a value to be dispatched to the rest of the
	// workspace. Success here does not imply the operation was
	// accepted by the server: that happens asynchronously on the
	// background worker.
	Send(ctx context.Context, value T) error

	// Recv blocks until the next value is available, consuming it.
	Recv(ctx context.Context) (T, error)

	// TryRecv returns the next value without blocking. ok is false
	// when nothing is available yet.
	TryRecv() (value T, ok bool, err error)

	// Poll blocks until a value is available to TryRecv, without
	// consuming it.
	Poll(ctx context.Context) error

	// Callback registers a callback to run on every received value.
	// Only one callback can be registered at a time; setting a new one
	// replaces the previous.
	Callback(cb Callback[T])

	// ClearCallback removes any registered callback.
	ClearCallback()

	// Stop shuts down the underlying worker. Returns true if this call
	// was the one that triggered the shutdown, false if it was already
	// stopped. Already-queued values remain receivable until drained.
	Stop() bool
}
