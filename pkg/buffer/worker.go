package buffer

import (
	"context"

	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/controller"
	"github.com/hexedtech/codemp/pkg/hashutil"
	"github.com/hexedtech/codemp/pkg/logging"
	"github.com/hexedtech/codemp/pkg/ot"

	"github.com/hexedtech/codemp/internal/wire"
)

const opChannelSize = 64

// Worker owns one buffer's single source of truth: the local replica
// string, and the queue of locally-originated operations not yet
// acknowledged by the server. Exactly one goroutine should run it, via
// Run.
type Worker struct {
	uid  string
	path string

	state *sharedState
	queue []*ot.OperationSeq
	sent  int // queue[:sent] has already been forwarded to outbound and awaits an echo

	local  chan *ot.OperationSeq
	remote chan remoteOp

	core       *controller.Core[api.TextChange]
	controller *Controller
}

// remoteOp pairs an incoming operation with the id of the user who
// issued it, so the worker can recognize the server echoing back one
// of its own operations as an acknowledgement rather than a change to
// transform and apply.
type remoteOp struct {
	op     *ot.OperationSeq
	userID string
}

// NewWorker creates a buffer worker seeded with initial content. The
// returned Controller is the only handle editor code should use; Run
// must be started in its own goroutine for the buffer to make progress.
func NewWorker(uid, path, initial string) *Worker {
	state := newSharedState(initial)
	core := controller.NewCore[api.TextChange]()
	local := make(chan *ot.OperationSeq, opChannelSize)

	ctrl := &Controller{Core: core, path: path, state: state, local: local}
	core.SetSelf(ctrl)

	w := &Worker{
		uid:        uid,
		path:       path,
		state:      state,
		local:      local,
		remote:     make(chan remoteOp, opChannelSize),
		core:       core,
		controller: ctrl,
	}
	return w
}

// Controller returns the editor-facing handle for this buffer.
func (w *Worker) Controller() *Controller { return w.controller }

// DeliverRemote queues an operation received from the server, tagged
// with the id of the user who issued it, for the worker loop to
// reconcile. Non-blocking: if the worker is backed up, the operation
// is dropped and logged, matching this client's freshness-over-
// completeness delivery policy.
func (w *Worker) DeliverRemote(op *ot.OperationSeq, userID string) {
	select {
	case w.remote <- remoteOp{op: op, userID: userID}:
	default:
		logging.Warn("buffer %q: remote operation queue full, dropping", w.path)
	}
}

// Run drives the worker's main loop until ctx is cancelled or the
// controller is stopped. Operations accepted from the editor are
// applied immediately and forwarded, in order, on outbound; operations
// received from the server are transformed against whatever is still
// unacknowledged before being applied and surfaced to Recv/callbacks,
// unless they are the server echoing back one of our own operations,
// in which case they just acknowledge the head of our queue.
func (w *Worker) Run(ctx context.Context, outbound chan<- wire.OperationEnvelope) {
	for {
		select {
		case r := <-w.remote:
			if r.userID == w.uid {
				if len(w.queue) > 0 {
					w.queue = w.queue[1:]
					if w.sent > 0 {
						w.sent--
					}
				}
				continue
			}

			out := r.op
			for i, queued := range w.queue {
				qPrime, outPrime, err := queued.Transform(out)
				if err != nil {
					logging.Warn("buffer %q: could not transform enqueued operation: %v", w.path, err)
					break
				}
				w.queue[i] = qPrime
				out = outPrime
			}

			change, err := w.update(out)
			if err != nil {
				logging.Warn("buffer %q: could not apply transformed remote operation: %v", w.path, err)
				continue
			}
			w.core.Deliver(change)

		case op := <-w.local:
			if _, err := w.update(op); err != nil {
				logging.Warn("buffer %q: could not apply local operation: %v", w.path, err)
				continue
			}
			w.queue = append(w.queue, op)
			if !w.flush(ctx, outbound) {
				return
			}

		case <-w.core.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// flush forwards every queued local operation not yet sent, in order.
// Sent operations stay in queue until the server echoes them back by
// user id, so transform can still account for them; only the unsent
// tail (queue[sent:]) is forwarded here. Returns false if the worker
// should stop entirely.
func (w *Worker) flush(ctx context.Context, outbound chan<- wire.OperationEnvelope) bool {
	for w.sent < len(w.queue) {
		env := wire.OperationEnvelope{Path: w.path, UserID: w.uid, Op: w.queue[w.sent]}
		select {
		case outbound <- env:
			w.sent++
		case <-w.core.Done():
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// update applies op to the current buffer content, publishes the new
// content, and derives the editor-facing TextChange for it.
func (w *Worker) update(op *ot.OperationSeq) (api.TextChange, error) {
	before := w.state.get()
	after, err := op.Apply(before)
	if err != nil {
		return api.TextChange{}, err
	}
	w.state.set(after)

	skip := ot.LeadingNoop(op.Ops())
	tail := ot.TrailingNoop(op.Ops())
	baseLen := op.BaseLen()

	afterRunes := []rune(after)
	content := string(afterRunes[skip : uint64(len(afterRunes))-tail])
	hash := hashutil.HashString(after)

	return api.TextChange{
		Start:   uint32(skip),
		End:     uint32(baseLen - tail),
		Content: content,
		Hash:    &hash,
	}, nil
}
