package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hexedtech/codemp/internal/wire"
	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/logging"
	"github.com/hexedtech/codemp/pkg/transport"
	"github.com/hexedtech/codemp/pkg/workspace"
)

const sendTimeout = 5 * time.Second

// pumpCursorOut returns a channel that forwards every cursor envelope
// written to it out over tr's duplex session. This is the outbound
// side of the cursor worker's Run loop.
func pumpCursorOut(ctx context.Context, tr *transport.Client) chan wire.CursorEnvelope {
	ch := make(chan wire.CursorEnvelope, 64)
	go func() {
		for {
			select {
			case env := <-ch:
				sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
				err := tr.Session().SendCursor(sendCtx, env)
				cancel()
				if err != nil {
					logging.Warn("client: could not send cursor update: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// pumpCursorsIn forwards every cursor update the transport receives
// into the workspace's cursor worker.
func pumpCursorsIn(ctx context.Context, tr *transport.Client, ws *workspace.Workspace) {
	for {
		select {
		case env := <-tr.Session().Cursors():
			ws.DeliverCursor(envelopeToCursor(env))
		case <-ctx.Done():
			return
		}
	}
}

// pumpOperationsOut forwards every buffer operation any attached
// buffer worker produces out over tr's duplex session.
func pumpOperationsOut(ctx context.Context, ws *workspace.Workspace, tr *transport.Client) {
	for {
		select {
		case env := <-ws.Outbound():
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			err := tr.Session().SendOperation(sendCtx, env)
			cancel()
			if err != nil {
				logging.Warn("client: could not send operation for %q: %v", env.Path, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// pumpOperationsIn routes every buffer operation the transport
// receives to the workspace, which demuxes it to the right attached
// buffer by path.
func pumpOperationsIn(ctx context.Context, tr *transport.Client, ws *workspace.Workspace) {
	for {
		select {
		case env := <-tr.Session().Operations():
			ws.DeliverBufferOp(env.Path, env.Op, env.UserID)
		case <-ctx.Done():
			return
		}
	}
}

func envelopeToCursor(env wire.CursorEnvelope) api.Cursor {
	cur := api.Cursor{
		Start:  api.RowCol{Row: env.Start.Row, Col: env.Start.Col},
		End:    api.RowCol{Row: env.End.Row, Col: env.End.Col},
		Buffer: env.Buffer,
	}
	if id, err := uuid.Parse(env.UserID); err == nil {
		cur.User = &id
	}
	return cur
}
