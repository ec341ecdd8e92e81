package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hexedtech/codemp/internal/wire"
	codempErrors "github.com/hexedtech/codemp/pkg/errors"
	"github.com/hexedtech/codemp/pkg/logging"
)

const pendingQueueSize = 256

// WorkspaceSession is one workspace's single duplex websocket
// connection: cursor updates, buffer operations, workspace events and
// unary call/response all multiplex over it as ClientFrame/ServerFrame
// values.
type WorkspaceSession struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	cursorIn chan wire.CursorEnvelope
	opIn     chan wire.OperationEnvelope
	eventIn  chan wire.WorkspaceEvent

	nextID   atomic.Uint64
	pendMu   sync.Mutex
	pending  map[uint64]chan UnaryResponse

	closeOnce sync.Once
	closed    chan struct{}
}

// DialWorkspace opens a workspace's duplex stream.
func DialWorkspace(ctx context.Context, endpointURL, token string) (*WorkspaceSession, error) {
	conn, err := dialWithToken(ctx, endpointURL, token)
	if err != nil {
		return nil, &codempErrors.ConnectionError{Cause: err}
	}
	return newSession(conn), nil
}

func newSession(conn *websocket.Conn) *WorkspaceSession {
	s := &WorkspaceSession{
		conn:     conn,
		cursorIn: make(chan wire.CursorEnvelope, pendingQueueSize),
		opIn:     make(chan wire.OperationEnvelope, pendingQueueSize),
		eventIn:  make(chan wire.WorkspaceEvent, pendingQueueSize),
		pending:  make(map[uint64]chan UnaryResponse),
		closed:   make(chan struct{}),
	}
	return s
}

// Run drives the read pump until ctx is cancelled or the connection
// errors. Must be started in its own goroutine right after dialing.
func (s *WorkspaceSession) Run(ctx context.Context) error {
	defer s.Close()
	for {
		var frame ServerFrame
		if err := wsjson.Read(ctx, s.conn, &frame); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("transport: read: %w", err)
		}

		switch {
		case frame.Cursor != nil:
			select {
			case s.cursorIn <- *frame.Cursor:
			default:
				logging.Warn("transport: cursor inbound queue full, dropping update")
			}
		case frame.Operation != nil:
			select {
			case s.opIn <- *frame.Operation:
			default:
				logging.Warn("transport: operation inbound queue full, dropping update")
			}
		case frame.Event != nil:
			select {
			case s.eventIn <- *frame.Event:
			default:
				logging.Warn("transport: event inbound queue full, dropping update")
			}
		case frame.Unary != nil:
			s.resolve(*frame.Unary)
		}
	}
}

func (s *WorkspaceSession) resolve(resp UnaryResponse) {
	s.pendMu.Lock()
	ch, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.pendMu.Unlock()

	if !ok {
		logging.Warn("transport: unary response for unknown request id %d", resp.ID)
		return
	}
	ch <- resp
}

// Cursors returns the channel of inbound cursor updates.
func (s *WorkspaceSession) Cursors() <-chan wire.CursorEnvelope { return s.cursorIn }

// Operations returns the channel of inbound buffer operations.
func (s *WorkspaceSession) Operations() <-chan wire.OperationEnvelope { return s.opIn }

// Events returns the channel of inbound workspace events.
func (s *WorkspaceSession) Events() <-chan wire.WorkspaceEvent { return s.eventIn }

func (s *WorkspaceSession) send(ctx context.Context, frame ClientFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := wsjson.Write(ctx, s.conn, frame); err != nil {
		return &codempErrors.TransportError{Status: "write", Message: err.Error()}
	}
	return nil
}

// SendCursor publishes a local cursor update.
func (s *WorkspaceSession) SendCursor(ctx context.Context, env wire.CursorEnvelope) error {
	return s.send(ctx, ClientFrame{Cursor: &env})
}

// SendOperation publishes a locally-originated buffer operation.
func (s *WorkspaceSession) SendOperation(ctx context.Context, env wire.OperationEnvelope) error {
	return s.send(ctx, ClientFrame{Operation: &env})
}

// Call issues a unary request and blocks for its matching response.
func (s *WorkspaceSession) Call(ctx context.Context, method UnaryMethod, path string) (UnaryResponse, error) {
	id := s.nextID.Add(1)
	ch := make(chan UnaryResponse, 1)

	s.pendMu.Lock()
	s.pending[id] = ch
	s.pendMu.Unlock()

	req := UnaryRequest{ID: id, Method: method, Path: path}
	if err := s.send(ctx, ClientFrame{Unary: &req}); err != nil {
		s.pendMu.Lock()
		delete(s.pending, id)
		s.pendMu.Unlock()
		return UnaryResponse{}, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp, &codempErrors.RemoteError{Message: resp.Error}
		}
		return resp, nil
	case <-s.closed:
		return UnaryResponse{}, &codempErrors.TransportError{Status: "closed", Message: "session closed while awaiting response"}
	case <-ctx.Done():
		return UnaryResponse{}, ctx.Err()
	}
}

// Close terminates the underlying websocket connection. Safe to call
// more than once.
func (s *WorkspaceSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return err
}
