package controller

import (
	"context"
	"testing"
	"time"

	codempErrors "github.com/hexedtech/codemp/pkg/errors"
)

func TestCoreTryRecvEmpty(t *testing.T) {
	c := NewCore[int]()
	_, ok, err := c.TryRecv()
	if ok || err != nil {
		t.Fatalf("expected empty queue, got ok=%v err=%v", ok, err)
	}
}

func TestCoreDeliverAndTryRecv(t *testing.T) {
	c := NewCore[int]()
	c.Deliver(1)
	c.Deliver(2)

	v, ok, err := c.TryRecv()
	if err != nil || !ok || v != 1 {
		t.Fatalf("got v=%d ok=%v err=%v, want 1/true/nil", v, ok, err)
	}
	v, ok, err = c.TryRecv()
	if err != nil || !ok || v != 2 {
		t.Fatalf("got v=%d ok=%v err=%v, want 2/true/nil", v, ok, err)
	}
	_, ok, err = c.TryRecv()
	if ok || err != nil {
		t.Fatalf("expected drained queue, got ok=%v err=%v", ok, err)
	}
}

func TestCoreQueueDropsOldestWhenFull(t *testing.T) {
	c := NewCore[int]()
	for i := 0; i < QueueSize+10; i++ {
		c.Deliver(i)
	}

	v, ok, _ := c.TryRecv()
	if !ok || v != 10 {
		t.Fatalf("expected oldest surviving value 10, got %d (ok=%v)", v, ok)
	}
}

func TestCoreRecvBlocksUntilDeliver(t *testing.T) {
	c := NewCore[string]()

	done := make(chan string, 1)
	go func() {
		v, err := c.Recv(context.Background())
		if err != nil {
			t.Errorf("recv: %v", err)
			return
		}
		done <- v
	}()

	select {
	case <-done:
		t.Fatalf("recv returned before any value was delivered")
	case <-time.After(20 * time.Millisecond):
	}

	c.Deliver("hello")

	select {
	case v := <-done:
		if v != "hello" {
			t.Fatalf("got %q want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatalf("recv did not unblock after deliver")
	}
}

func TestCoreRecvRespectsContextCancellation(t *testing.T) {
	c := NewCore[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := c.Recv(ctx); err == nil {
		t.Fatalf("expected context deadline error")
	}
}

// TestCoreRecvSurfacesDeadlockOnSpuriousWake races two Recv callers
// against a single delivered value: both wake from the same Poll
// broadcast, but only one TryRecv can win the value. The loser must
// not silently re-poll — it has to report ErrDeadlocked so its caller
// knows to retry rather than block forever.
func TestCoreRecvSurfacesDeadlockOnSpuriousWake(t *testing.T) {
	c := NewCore[int]()

	type outcome struct {
		v   int
		err error
	}
	results := make(chan outcome, 2)

	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			v, err := c.Recv(context.Background())
			results <- outcome{v, err}
		}()
	}
	close(start)
	time.Sleep(20 * time.Millisecond) // let both goroutines block in Poll

	c.Deliver(99)

	var gotValue, gotDeadlock int
	for i := 0; i < 2; i++ {
		select {
		case o := <-results:
			switch {
			case o.err == nil && o.v == 99:
				gotValue++
			case o.err == codempErrors.ErrDeadlocked:
				gotDeadlock++
			default:
				t.Fatalf("unexpected outcome: v=%d err=%v", o.v, o.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("recv did not return for both racing callers")
		}
	}

	if gotValue != 1 || gotDeadlock != 1 {
		t.Fatalf("expected exactly one winner and one deadlock, got winners=%d deadlocks=%d", gotValue, gotDeadlock)
	}
}

func TestCoreStopDrainsThenErrors(t *testing.T) {
	c := NewCore[int]()
	c.Deliver(42)

	if !c.Stop() {
		t.Fatalf("first Stop() call should report true")
	}
	if c.Stop() {
		t.Fatalf("second Stop() call should report false")
	}

	v, ok, err := c.TryRecv()
	if err != nil || !ok || v != 42 {
		t.Fatalf("expected to drain the queued value after stop, got v=%d ok=%v err=%v", v, ok, err)
	}

	_, ok, err = c.TryRecv()
	if ok || err == nil {
		t.Fatalf("expected channel-closed error once drained after stop")
	}
}

func TestCoreCallbackFiresOnDeliver(t *testing.T) {
	c := NewCore[int]()
	var fake Controller[int] = &fakeController[int]{core: c}
	c.SetSelf(fake)

	called := make(chan Controller[int], 1)
	c.Callback(func(ctrl Controller[int]) { called <- ctrl })

	c.Deliver(7)

	select {
	case ctrl := <-called:
		if ctrl != fake {
			t.Fatalf("callback did not receive the registered controller handle")
		}
	case <-time.After(time.Second):
		t.Fatalf("callback was not invoked")
	}

	c.ClearCallback()
	c.Deliver(8)
	select {
	case <-called:
		t.Fatalf("callback fired after being cleared")
	case <-time.After(20 * time.Millisecond):
	}
}

// fakeController adapts a *Core into a Controller for tests that need
// a concrete handle to pass through SetSelf/callbacks.
type fakeController[T any] struct {
	core *Core[T]
}

func (f *fakeController[T]) Send(ctx context.Context, value T) error { return nil }
func (f *fakeController[T]) Recv(ctx context.Context) (T, error)     { return f.core.Recv(ctx) }
func (f *fakeController[T]) TryRecv() (T, bool, error)               { return f.core.TryRecv() }
func (f *fakeController[T]) Poll(ctx context.Context) error          { return f.core.Poll(ctx) }
func (f *fakeController[T]) Callback(cb Callback[T])                 { f.core.Callback(cb) }
func (f *fakeController[T]) ClearCallback()                          { f.core.ClearCallback() }
func (f *fakeController[T]) Stop() bool                              { return f.core.Stop() }
