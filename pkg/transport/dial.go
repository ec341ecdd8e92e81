// Package transport speaks just enough websocket JSON to drive the
// workspace/cursor/buffer duplex streams and the handful of unary RPCs
// a workspace needs (create/delete/list buffer, list users, list
// buffer users) against a real or test codemp-shaped server. It is not
// a production implementation of the real codemp wire protocol.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"nhooyr.io/websocket"

	"github.com/hexedtech/codemp/pkg/api"
)

// dialWithToken opens a websocket connection to url, injecting token as
// a bearer Authorization header the way a workspace or session token
// would be attached to every codemp RPC call.
func dialWithToken(ctx context.Context, url, token string) (*websocket.Conn, error) {
	opts := &websocket.DialOptions{
		HTTPHeader: make(http.Header),
	}
	if token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// workspaceURL builds the websocket URL for a workspace's duplex
// stream from a client Config, reusing api.Config.Endpoint()'s
// host/port/TLS composition with the scheme swapped for ws(s).
func workspaceURL(cfg api.Config, workspaceID string) string {
	wsEndpoint := strings.Replace(cfg.Endpoint(), "http", "ws", 1)
	return fmt.Sprintf("%s/workspace/%s", wsEndpoint, workspaceID)
}
