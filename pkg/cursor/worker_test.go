package cursor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hexedtech/codemp/internal/wire"
	"github.com/hexedtech/codemp/pkg/api"
)

func TestWorkerForwardsLocalCursor(t *testing.T) {
	w := NewWorker("user-1")
	ctrl := w.Controller()

	outbound := make(chan wire.CursorEnvelope, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, outbound)

	cur := api.Cursor{Start: api.RowCol{Row: 1, Col: 2}, End: api.RowCol{Row: 1, Col: 5}, Buffer: "main.go"}
	if err := ctrl.Send(context.Background(), cur); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case env := <-outbound:
		if env.UserID != "user-1" || env.Buffer != "main.go" || env.Start.Col != 2 {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	case <-time.After(time.Second):
		t.Fatalf("local cursor was never forwarded")
	}
}

func TestWorkerDeliversRemoteCursor(t *testing.T) {
	w := NewWorker("user-1")
	ctrl := w.Controller()

	outbound := make(chan wire.CursorEnvelope, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, outbound)

	other := uuid.New()
	w.DeliverRemote(api.Cursor{Buffer: "main.go", User: &other})

	cur, err := ctrl.Recv(context.Background())
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if cur.User == nil || *cur.User != other {
		t.Fatalf("unexpected cursor: %+v", cur)
	}
}

func TestWorkerSuppressesSelfEcho(t *testing.T) {
	self := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	w := NewWorker(self.String())
	ctrl := w.Controller()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outbound := make(chan wire.CursorEnvelope, 4)
	go w.Run(ctx, outbound)

	w.DeliverRemote(api.Cursor{Buffer: "main.go", User: &self})

	pollCtx, pollCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer pollCancel()
	if _, err := ctrl.Recv(pollCtx); err == nil {
		t.Fatalf("expected self-echoed cursor to be suppressed")
	}
}
