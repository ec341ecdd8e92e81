// Package workspace implements the workspace actor: the object that
// owns a joined workspace's cursor stream, its attached buffer
// controllers, and the locally-known filetree and user roster. It folds
// the wire-level join/leave/create/rename/delete stream into the
// smaller api.Event vocabulary editor integrations consume.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hexedtech/codemp/internal/wire"
	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/buffer"
	"github.com/hexedtech/codemp/pkg/controller"
	"github.com/hexedtech/codemp/pkg/cursor"
	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"github.com/hexedtech/codemp/pkg/logging"
	"github.com/hexedtech/codemp/pkg/ot"
)

// DetachResult reports what Detach actually did, so callers can tell a
// no-op from a stop that raced with one already in flight.
type DetachResult int

const (
	// NotAttached means the given path had no attached buffer.
	NotAttached DetachResult = iota
	// Detaching means this call stopped the buffer controller.
	Detaching
	// AlreadyDetached means the buffer was attached but its
	// controller had already been stopped by someone else.
	AlreadyDetached
)

func (d DetachResult) String() string {
	switch d {
	case NotAttached:
		return "not-attached"
	case Detaching:
		return "detaching"
	case AlreadyDetached:
		return "already-detached"
	default:
		return fmt.Sprintf("workspace.DetachResult(%d)", int(d))
	}
}

// Services is the set of unary RPCs a workspace proxies through to the
// server. pkg/transport supplies the concrete implementation; tests can
// substitute a fake or leave it nil to exercise local bookkeeping only.
type Services interface {
	CreateBuffer(ctx context.Context, workspaceID, path string) error
	DeleteBuffer(ctx context.Context, workspaceID, path string) error
	// AccessBuffer fetches path's current content plus a short-lived
	// per-buffer credential, per spec §4.E step 1 / §4.G's attach-time
	// token swap.
	AccessBuffer(ctx context.Context, workspaceID, path string) (content, token string, err error)
	ListBuffers(ctx context.Context, workspaceID string) ([]string, error)
	ListUsers(ctx context.Context, workspaceID string) ([]api.User, error)
	ListBufferUsers(ctx context.Context, workspaceID, path string) ([]api.User, error)
}

type attachedBuffer struct {
	worker *buffer.Worker
	ctrl   *buffer.Controller
}

// Workspace is the editor-facing handle to a single joined workspace.
type Workspace struct {
	id     string
	userID uuid.UUID

	services Services

	cursorWorker *cursor.Worker
	cursorCtrl   *cursor.Controller

	mu       sync.RWMutex
	buffers  map[string]*attachedBuffer
	filetree map[string]struct{}
	users    map[uuid.UUID]api.User

	events    *controller.Core[api.Event]
	bufferOut chan wire.OperationEnvelope

	// installToken, if set, receives each per-buffer credential Attach
	// obtains from AccessBuffer, so the transport layer can swap it
	// into the active auth token. Nil is a no-op (e.g. in tests that
	// exercise bookkeeping only).
	installToken func(token string)
}

// bufferOutboundSize bounds how many locally-originated operations
// across every attached buffer may be queued for the transport before
// a slow connection starts applying backpressure to buffer workers.
const bufferOutboundSize = 256

// New creates a workspace actor for id, owned by userID. The cursor
// worker is created but not started: callers must run RunCursor (and,
// separately, ConsumeEvents) in their own goroutines once the
// transport streams are open.
func New(id string, userID uuid.UUID, services Services) *Workspace {
	cw := cursor.NewWorker(userID.String())

	return &Workspace{
		id:           id,
		userID:       userID,
		services:     services,
		cursorWorker: cw,
		cursorCtrl:   cw.Controller(),
		buffers:      make(map[string]*attachedBuffer),
		filetree:     make(map[string]struct{}),
		users:        make(map[uuid.UUID]api.User),
		events:       controller.NewCore[api.Event](),
		bufferOut:    make(chan wire.OperationEnvelope, bufferOutboundSize),
	}
}

// SetCredentialInstaller registers the hook Attach invokes with each
// freshly obtained per-buffer token. Optional: leave unset to skip
// credential installation (e.g. in tests with a fake Services).
func (w *Workspace) SetCredentialInstaller(fn func(token string)) {
	w.installToken = fn
}

// Outbound returns the channel every attached buffer's locally
// originated operations are forwarded onto. A caller wiring this
// workspace to a transport must pump this channel out to the wire.
func (w *Workspace) Outbound() <-chan wire.OperationEnvelope { return w.bufferOut }

// ID returns the workspace's identifier.
func (w *Workspace) ID() string { return w.id }

// Cursor returns the editor-facing cursor controller for this
// workspace.
func (w *Workspace) Cursor() *cursor.Controller { return w.cursorCtrl }

// RunCursor drives the workspace's cursor worker until ctx is
// cancelled or the cursor controller is stopped. Must run in its own
// goroutine.
func (w *Workspace) RunCursor(ctx context.Context, outbound chan<- wire.CursorEnvelope) {
	w.cursorWorker.Run(ctx, outbound)
}

// DeliverCursor queues a cursor update received from the server.
func (w *Workspace) DeliverCursor(cur api.Cursor) {
	w.cursorWorker.DeliverRemote(cur)
}

// Event blocks until the next folded workspace notification is
// available.
func (w *Workspace) Event(ctx context.Context) (api.Event, error) {
	return w.events.Recv(ctx)
}

// ConsumeEvents drains incoming until ctx is cancelled or incoming is
// closed, folding each wire.WorkspaceEvent into local filetree/roster
// bookkeeping and a re-emitted api.Event. Must run in its own
// goroutine, started once per workspace subscription.
func (w *Workspace) ConsumeEvents(ctx context.Context, incoming <-chan wire.WorkspaceEvent) {
	for {
		select {
		case ev, ok := <-incoming:
			if !ok {
				return
			}
			w.applyEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Workspace) applyEvent(ev wire.WorkspaceEvent) {
	switch {
	case ev.Join != nil:
		id, err := uuid.Parse(ev.Join.UserID)
		if err != nil {
			logging.Warn("workspace %q: join event with invalid user id %q: %v", w.id, ev.Join.UserID, err)
			return
		}
		w.mu.Lock()
		w.users[id] = api.User{ID: id}
		w.mu.Unlock()
		w.events.Deliver(api.Event{Kind: api.UserJoin, Name: ev.Join.UserID})

	case ev.Leave != nil:
		if id, err := uuid.Parse(ev.Leave.UserID); err == nil {
			w.mu.Lock()
			delete(w.users, id)
			w.mu.Unlock()
		}
		w.events.Deliver(api.Event{Kind: api.UserLeave, Name: ev.Leave.UserID})

	case ev.Create != nil:
		w.mu.Lock()
		w.filetree[ev.Create.Path] = struct{}{}
		w.mu.Unlock()
		w.events.Deliver(api.Event{Kind: api.FileTreeUpdated, Path: ev.Create.Path})

	case ev.Rename != nil:
		w.mu.Lock()
		delete(w.filetree, ev.Rename.Before)
		w.filetree[ev.Rename.After] = struct{}{}
		w.mu.Unlock()
		w.events.Deliver(api.Event{Kind: api.FileTreeUpdated, Path: ev.Rename.After})

	case ev.Delete != nil:
		w.mu.Lock()
		delete(w.filetree, ev.Delete.Path)
		ab, ok := w.buffers[ev.Delete.Path]
		if ok {
			delete(w.buffers, ev.Delete.Path)
		}
		w.mu.Unlock()
		if ok {
			ab.ctrl.Stop()
		}
		w.events.Deliver(api.Event{Kind: api.FileTreeUpdated, Path: ev.Delete.Path})
	}
}

// Attach obtains a short-lived per-buffer credential and path's current
// content from the server (spec §4.E step 1), installs the credential,
// then creates and starts a buffer worker seeded with that content and
// registers its controller. Its locally originated operations are
// forwarded onto Outbound(); incoming operations for this path arrive
// through DeliverBufferOp.
func (w *Workspace) Attach(ctx context.Context, path string) (*buffer.Controller, error) {
	content, token, err := w.services.AccessBuffer(ctx, w.id, path)
	if err != nil {
		return nil, err
	}
	if w.installToken != nil {
		w.installToken(token)
	}

	bw := buffer.NewWorker(w.userID.String(), path, content)
	ctrl := bw.Controller()

	w.mu.Lock()
	w.buffers[path] = &attachedBuffer{worker: bw, ctrl: ctrl}
	w.mu.Unlock()

	go bw.Run(ctx, w.bufferOut)
	return ctrl, nil
}

// DeliverBufferOp routes an operation received from the server, along
// with the id of the user who issued it, to the buffer worker attached
// to path, if any. Operations for a path with no attached buffer are
// dropped and logged: the server should not be sending them in the
// first place once detach has been acknowledged.
func (w *Workspace) DeliverBufferOp(path string, op *ot.OperationSeq, userID string) {
	w.mu.RLock()
	ab, ok := w.buffers[path]
	w.mu.RUnlock()

	if !ok {
		logging.Warn("workspace %q: operation for unattached buffer %q", w.id, path)
		return
	}
	ab.worker.DeliverRemote(op, userID)
}

// Detach stops and unregisters the buffer controller attached to path.
func (w *Workspace) Detach(path string) DetachResult {
	w.mu.Lock()
	ab, ok := w.buffers[path]
	if ok {
		delete(w.buffers, path)
	}
	w.mu.Unlock()

	if !ok {
		return NotAttached
	}
	if ab.ctrl.Stop() {
		return Detaching
	}
	return AlreadyDetached
}

// BufferByName returns the controller attached to path, if any.
func (w *Workspace) BufferByName(path string) (*buffer.Controller, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ab, ok := w.buffers[path]
	if !ok {
		return nil, false
	}
	return ab.ctrl, true
}

// BufferList returns the workspace-relative paths currently attached,
// sorted.
func (w *Workspace) BufferList() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.buffers))
	for p := range w.buffers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// UserList returns a sorted snapshot of the workspace's known roster.
func (w *Workspace) UserList() []api.User {
	w.mu.RLock()
	out := make([]api.User, 0, len(w.users))
	for _, u := range w.users {
		out = append(out, u)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Filetree returns a sorted snapshot of the workspace's known files.
// With filter nil, every known path is returned. With strict true,
// only a path exactly equal to *filter is returned; with strict false,
// every path with *filter as a prefix is returned.
func (w *Workspace) Filetree(filter *string, strict bool) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.filetree))
	for p := range w.filetree {
		switch {
		case filter == nil:
			out = append(out, p)
		case strict:
			if p == *filter {
				out = append(out, p)
			}
		default:
			if strings.HasPrefix(p, *filter) {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// CreateBuffer asks the server to create path (if services is set)
// then records it in the local filetree.
func (w *Workspace) CreateBuffer(ctx context.Context, path string) error {
	if w.services != nil {
		if err := w.services.CreateBuffer(ctx, w.id, path); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.filetree[path] = struct{}{}
	w.mu.Unlock()
	return nil
}

// DeleteBuffer asks the server to delete path (if services is set),
// removes it from the local filetree, and stops its buffer controller
// if attached.
func (w *Workspace) DeleteBuffer(ctx context.Context, path string) error {
	if w.services != nil {
		if err := w.services.DeleteBuffer(ctx, w.id, path); err != nil {
			return err
		}
	}

	w.mu.Lock()
	delete(w.filetree, path)
	ab, ok := w.buffers[path]
	if ok {
		delete(w.buffers, path)
	}
	w.mu.Unlock()

	if ok {
		ab.ctrl.Stop()
	}
	return nil
}

// FetchBuffers refreshes the local filetree from the server.
func (w *Workspace) FetchBuffers(ctx context.Context) error {
	if w.services == nil {
		return &codempErrors.InvalidStateError{Msg: "workspace has no services attached"}
	}
	paths, err := w.services.ListBuffers(ctx, w.id)
	if err != nil {
		return err
	}
	fresh := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		fresh[p] = struct{}{}
	}
	w.mu.Lock()
	w.filetree = fresh
	w.mu.Unlock()
	return nil
}

// FetchUsers refreshes the local roster from the server.
func (w *Workspace) FetchUsers(ctx context.Context) error {
	if w.services == nil {
		return &codempErrors.InvalidStateError{Msg: "workspace has no services attached"}
	}
	users, err := w.services.ListUsers(ctx, w.id)
	if err != nil {
		return err
	}
	fresh := make(map[uuid.UUID]api.User, len(users))
	for _, u := range users {
		fresh[u.ID] = u
	}
	w.mu.Lock()
	w.users = fresh
	w.mu.Unlock()
	return nil
}

// ListBufferUsers asks the server which users are currently attached
// to path.
func (w *Workspace) ListBufferUsers(ctx context.Context, path string) ([]api.User, error) {
	if w.services == nil {
		return nil, &codempErrors.InvalidStateError{Msg: "workspace has no services attached"}
	}
	return w.services.ListBufferUsers(ctx, w.id, path)
}
