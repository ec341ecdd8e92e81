package transport

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hexedtech/codemp/pkg/api"
)

// Client is a single workspace's transport binding: one dialed
// WorkspaceSession plus the workspace.Services unary calls implemented
// over it. pkg/client constructs one of these per joined workspace.
type Client struct {
	cfg         api.Config
	workspaceID string
	session     *WorkspaceSession
}

// Connect dials a workspace's duplex stream and returns a bound
// Client. The caller must run Session().Run(ctx) in its own goroutine
// before issuing any calls, so inbound frames and unary responses are
// pumped.
func Connect(ctx context.Context, cfg api.Config, workspaceID, token string) (*Client, error) {
	url := workspaceURL(cfg, workspaceID)
	session, err := DialWorkspace(ctx, url, token)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, workspaceID: workspaceID, session: session}, nil
}

// Session returns the underlying duplex session, for wiring into a
// workspace.Workspace's cursor/buffer plumbing and event consumer.
func (c *Client) Session() *WorkspaceSession { return c.session }

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.session.Close() }

// CreateBuffer implements workspace.Services.
func (c *Client) CreateBuffer(ctx context.Context, workspaceID, path string) error {
	_, err := c.session.Call(ctx, MethodCreateBuffer, path)
	return err
}

// DeleteBuffer implements workspace.Services.
func (c *Client) DeleteBuffer(ctx context.Context, workspaceID, path string) error {
	_, err := c.session.Call(ctx, MethodDeleteBuffer, path)
	return err
}

// AccessBuffer implements workspace.Services: it exchanges a buffer
// path for its current content plus a short-lived per-buffer
// credential, installed by the caller before streaming operations.
func (c *Client) AccessBuffer(ctx context.Context, workspaceID, path string) (content, token string, err error) {
	resp, err := c.session.Call(ctx, MethodAccessBuffer, path)
	if err != nil {
		return "", "", err
	}
	return resp.Content, resp.Token, nil
}

// ListBuffers implements workspace.Services.
func (c *Client) ListBuffers(ctx context.Context, workspaceID string) ([]string, error) {
	resp, err := c.session.Call(ctx, MethodListBuffers, "")
	if err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

// ListUsers implements workspace.Services.
func (c *Client) ListUsers(ctx context.Context, workspaceID string) ([]api.User, error) {
	resp, err := c.session.Call(ctx, MethodListUsers, "")
	if err != nil {
		return nil, err
	}
	return parseUsers(resp.Users)
}

// ListBufferUsers implements workspace.Services.
func (c *Client) ListBufferUsers(ctx context.Context, workspaceID, path string) ([]api.User, error) {
	resp, err := c.session.Call(ctx, MethodListBufferUsers, path)
	if err != nil {
		return nil, err
	}
	return parseUsers(resp.Users)
}

func parseUsers(ids []string) ([]api.User, error) {
	out := make([]api.User, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("transport: bad user id %q in response: %w", raw, err)
		}
		out = append(out, api.User{ID: id})
	}
	return out, nil
}
