// Package client implements the authenticated façade every workspace
// hangs off: it owns the session's auth token cells and proxies the
// handful of session-scoped management RPCs (workspace create/delete/
// invite/list/get) that never touch the concurrent core, reserving
// join_workspace/leave_workspace/attach_buffer as the operations that do.
package client

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hexedtech/codemp/pkg/api"
	"github.com/hexedtech/codemp/pkg/buffer"
	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"github.com/hexedtech/codemp/pkg/transport"
	"github.com/hexedtech/codemp/pkg/watch"
	"github.com/hexedtech/codemp/pkg/workspace"
)

// WorkspaceInfo is the thin metadata GetWorkspace/ListWorkspaces
// returns about a workspace this client has not necessarily joined.
type WorkspaceInfo struct {
	ID    string
	Owner uuid.UUID
	Users []uuid.UUID
}

// Services is the set of session-scoped management RPCs the façade
// proxies to the server. None of these touch worker state; only
// JoinWorkspace, AttachBuffer and LeaveWorkspace do, through a joined
// workspace's duplex transport.
type Services interface {
	CreateWorkspace(ctx context.Context, id string) error
	DeleteWorkspace(ctx context.Context, id string) error
	InviteToWorkspace(ctx context.Context, id string, user uuid.UUID) error
	ListWorkspaces(ctx context.Context, owned, invited bool) ([]string, error)
	GetWorkspace(ctx context.Context, id string) (WorkspaceInfo, error)
	// JoinToken exchanges the session token for a workspace-scoped
	// token authorizing this client to dial id's duplex stream.
	JoinToken(ctx context.Context, id string) (string, error)
}

type joinedWorkspace struct {
	ws     *workspace.Workspace
	tr     *transport.Client
	ctx    context.Context
	cancel context.CancelFunc
}

// Client is the authenticated entry point for joining and managing
// workspaces. One Client corresponds to one logged-in user session.
type Client struct {
	cfg      api.Config
	self     api.User
	services Services

	sessionToken   *watch.Cell[string]
	workspaceToken *watch.Cell[string]

	mu     sync.Mutex
	active map[string]*joinedWorkspace
}

// Connect builds a Client for an already-validated Config and
// authenticated user identity. Credential exchange (turning
// username/password into a session token) is handled out of band by
// the caller, which obtains self and an initial token before calling
// in here.
func Connect(cfg api.Config, self api.User, sessionToken string, services Services) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, &codempErrors.InvalidStateError{Msg: "config missing username or password"}
	}
	return &Client{
		cfg:            cfg,
		self:           self,
		services:       services,
		sessionToken:   watch.NewCell(sessionToken),
		workspaceToken: watch.NewCell(""),
		active:         make(map[string]*joinedWorkspace),
	}, nil
}

// User returns the identity this client authenticated as.
func (c *Client) User() api.User { return c.self }

// Refresh replaces the session token, waking anything subscribed to
// it (e.g. a reconnect loop waiting on token rotation).
func (c *Client) Refresh(token string) { c.sessionToken.Set(token) }

// CreateWorkspace asks the server to create a new workspace. Thin RPC
// proxy: does not join it.
func (c *Client) CreateWorkspace(ctx context.Context, id string) error {
	return c.services.CreateWorkspace(ctx, id)
}

// DeleteWorkspace asks the server to delete a workspace. Refuses while
// this client still has it joined; call LeaveWorkspace first.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	c.mu.Lock()
	_, joined := c.active[id]
	c.mu.Unlock()
	if joined {
		return &codempErrors.InvalidStateError{Msg: "leave workspace before deleting it"}
	}
	return c.services.DeleteWorkspace(ctx, id)
}

// InviteToWorkspace grants another user access to a workspace. Thin
// RPC proxy.
func (c *Client) InviteToWorkspace(ctx context.Context, id string, user uuid.UUID) error {
	return c.services.InviteToWorkspace(ctx, id, user)
}

// ListWorkspaces lists workspace ids visible to this client, filtered
// by ownership/invitation. Thin RPC proxy.
func (c *Client) ListWorkspaces(ctx context.Context, owned, invited bool) ([]string, error) {
	return c.services.ListWorkspaces(ctx, owned, invited)
}

// GetWorkspace fetches metadata about a workspace without joining it.
// Thin RPC proxy.
func (c *Client) GetWorkspace(ctx context.Context, id string) (WorkspaceInfo, error) {
	return c.services.GetWorkspace(ctx, id)
}

// ActiveWorkspaces returns the ids of workspaces currently joined by
// this client, sorted.
func (c *Client) ActiveWorkspaces() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.active))
	for id := range c.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// JoinWorkspace dials id's duplex stream, fetches its initial roster
// and filetree, and starts the cursor worker and event consumer. The
// returned Workspace is cached: a second JoinWorkspace call for the
// same id returns the existing instance instead of dialing again.
func (c *Client) JoinWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	c.mu.Lock()
	if jw, ok := c.active[id]; ok {
		c.mu.Unlock()
		return jw.ws, nil
	}
	c.mu.Unlock()

	token, err := c.services.JoinToken(ctx, id)
	if err != nil {
		return nil, err
	}
	c.workspaceToken.Set(token)

	tr, err := transport.Connect(ctx, c.cfg, id, token)
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(context.Background())
	ws := workspace.New(id, c.self.ID, tr)
	ws.SetCredentialInstaller(func(token string) { c.workspaceToken.Set(token) })

	go tr.Session().Run(wctx)
	go ws.RunCursor(wctx, pumpCursorOut(wctx, tr))
	go ws.ConsumeEvents(wctx, tr.Session().Events())
	go pumpCursorsIn(wctx, tr, ws)
	go pumpOperationsOut(wctx, ws, tr)
	go pumpOperationsIn(wctx, tr, ws)

	if err := ws.FetchUsers(ctx); err != nil {
		cancel()
		tr.Close()
		return nil, err
	}
	if err := ws.FetchBuffers(ctx); err != nil {
		cancel()
		tr.Close()
		return nil, err
	}

	c.mu.Lock()
	c.active[id] = &joinedWorkspace{ws: ws, tr: tr, ctx: wctx, cancel: cancel}
	c.mu.Unlock()

	return ws, nil
}

// AttachBuffer attaches to path within an already-joined workspace,
// fetching its current content and installing a per-buffer credential
// via Workspace.Attach, and returns the editor-facing controller. The
// workspace must have been joined with JoinWorkspace first.
func (c *Client) AttachBuffer(ctx context.Context, workspaceID, path string) (*buffer.Controller, error) {
	c.mu.Lock()
	jw, ok := c.active[workspaceID]
	c.mu.Unlock()
	if !ok {
		return nil, &codempErrors.InvalidStateError{Msg: "workspace not joined: " + workspaceID}
	}
	return jw.ws.Attach(jw.ctx, path)
}

// LeaveWorkspace tears down a joined workspace's transport and worker
// goroutines and forgets it. A no-op if id was not joined.
func (c *Client) LeaveWorkspace(id string) error {
	c.mu.Lock()
	jw, ok := c.active[id]
	if ok {
		delete(c.active, id)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	jw.cancel()
	return jw.tr.Close()
}
