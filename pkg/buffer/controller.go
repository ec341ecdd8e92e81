// Package buffer implements the per-buffer actor that keeps a local
// text replica in sync with the rest of a workspace: it applies local
// edits optimistically, transforms incoming remote operations against
// whatever is still in flight, and exposes the result as a Controller
// of api.TextChange.
package buffer

import (
	"context"

	"github.com/hexedtech/codemp/pkg/api"
	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"github.com/hexedtech/codemp/pkg/controller"
	"github.com/hexedtech/codemp/pkg/ot"
)

// Controller is the editor-facing handle to one attached buffer.
type Controller struct {
	*controller.Core[api.TextChange]
	path  string
	state *sharedState
	local chan<- *ot.OperationSeq
}

// Path is the workspace-relative path this controller is attached to.
func (c *Controller) Path() string { return c.path }

// Content returns the buffer's current locally-known text. This
// reflects every local edit sent so far and every remote edit received
// so far, but may be milliseconds stale relative to the server.
func (c *Controller) Content() string { return c.state.get() }

// Send converts change into an operation against the buffer's current
// length and enqueues it for the worker to apply locally and forward
// to the rest of the workspace. A no-op change is suppressed here and
// never reaches the worker or the wire.
func (c *Controller) Send(ctx context.Context, change api.TextChange) error {
	if change.IsEmpty() {
		return nil
	}

	baseLen := uint64(len([]rune(c.state.get())))
	seq := change.ToOperationSeq(baseLen)

	select {
	case c.local <- seq:
		return nil
	case <-c.Done():
		return &codempErrors.ChannelError{Send: true}
	case <-ctx.Done():
		return ctx.Err()
	}
}
