// Package cursor implements the per-workspace cursor actor: one worker
// per joined workspace multiplexes every attached buffer's cursor
// movements outbound and fans remote cursor updates back in, deduping
// a user's own position echoed back by the server.
package cursor

import (
	"context"

	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/controller"
	codempErrors "github.com/hexedtech/codemp/pkg/errors"
)

// Controller is the editor-facing handle to a workspace's cursor
// stream: Send publishes this user's own position, Recv/Callback
// deliver everyone else's.
type Controller struct {
	*controller.Core[api.Cursor]
	local chan<- api.Cursor
}

// Send publishes a new local cursor position to the rest of the
// workspace.
func (c *Controller) Send(ctx context.Context, cur api.Cursor) error {
	select {
	case c.local <- cur:
		return nil
	case <-c.Done():
		return &codempErrors.ChannelError{Send: true}
	case <-ctx.Done():
		return ctx.Err()
	}
}
