package cursor

import (
	"context"

	"github.com/hexedtech/codemp/internal/wire"
	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/controller"
	"github.com/hexedtech/codemp/pkg/logging"
)

const cursorChannelSize = 64

// Worker owns one workspace's cursor stream. Exactly one goroutine
// should run it, via Run.
type Worker struct {
	uid string

	local  chan api.Cursor
	remote chan api.Cursor

	core       *controller.Core[api.Cursor]
	controller *Controller
}

// NewWorker creates a cursor worker for the given user. The returned
// Controller is the only handle editor code should use; Run must be
// started in its own goroutine for cursor updates to flow.
func NewWorker(uid string) *Worker {
	core := controller.NewCore[api.Cursor]()
	local := make(chan api.Cursor, cursorChannelSize)

	ctrl := &Controller{Core: core, local: local}
	core.SetSelf(ctrl)

	return &Worker{
		uid:        uid,
		local:      local,
		remote:     make(chan api.Cursor, cursorChannelSize),
		core:       core,
		controller: ctrl,
	}
}

// Controller returns the editor-facing handle for this workspace's
// cursor stream.
func (w *Worker) Controller() *Controller { return w.controller }

// DeliverRemote queues a cursor position received from the server.
// Positions echoed back for this same user are dropped: editors already
// know where their own cursor is. Non-blocking otherwise, matching this
// client's freshness-over-completeness delivery policy: a backed-up
// queue drops the update and logs instead of stalling the server
// stream.
func (w *Worker) DeliverRemote(cur api.Cursor) {
	if cur.User != nil && cur.User.String() == w.uid {
		return
	}
	select {
	case w.remote <- cur:
	default:
		logging.Warn("cursor worker: queue full, dropping update for buffer %q", cur.Buffer)
	}
}

// Run drives the worker's main loop until ctx is cancelled or the
// controller is stopped.
func (w *Worker) Run(ctx context.Context, outbound chan<- wire.CursorEnvelope) {
	for {
		select {
		case cur := <-w.local:
			env := wire.CursorEnvelope{
				UserID: w.uid,
				Buffer: cur.Buffer,
				Start:  wire.RowCol{Row: cur.Start.Row, Col: cur.Start.Col},
				End:    wire.RowCol{Row: cur.End.Row, Col: cur.End.Col},
			}
			select {
			case outbound <- env:
			case <-w.core.Done():
				return
			case <-ctx.Done():
				return
			}

		case cur := <-w.remote:
			w.core.Deliver(cur)

		case <-w.core.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}
