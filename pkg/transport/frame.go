package transport

import (
	"encoding/json"
	"fmt"

	"github.com/hexedtech/codemp/internal/wire"
)

// UnaryMethod names one of the fixed set of request/response RPCs a
// workspace session supports alongside its two duplex streams.
type UnaryMethod string

const (
	MethodCreateBuffer    UnaryMethod = "create_buffer"
	MethodDeleteBuffer    UnaryMethod = "delete_buffer"
	MethodAccessBuffer    UnaryMethod = "access_buffer"
	MethodListBuffers     UnaryMethod = "list_buffers"
	MethodListUsers       UnaryMethod = "list_users"
	MethodListBufferUsers UnaryMethod = "list_buffer_users"
)

// UnaryRequest is a single outstanding call, matched to its response by
// ID (assigned by the caller, unique per session).
type UnaryRequest struct {
	ID     uint64      `json:"id"`
	Method UnaryMethod `json:"method"`
	Path   string      `json:"path,omitempty"`
}

// UnaryResponse answers a UnaryRequest with the same ID. Exactly one of
// Error or the method-appropriate payload fields is set.
type UnaryResponse struct {
	ID      uint64   `json:"id"`
	Error   string   `json:"error,omitempty"`
	Paths   []string `json:"paths,omitempty"`
	Users   []string `json:"users,omitempty"`
	Content string   `json:"content,omitempty"` // access_buffer: the buffer's current text
	Token   string   `json:"token,omitempty"`   // access_buffer: short-lived per-buffer credential
}

// ClientFrame is the tagged union of everything a client can send on a
// workspace's single duplex websocket: a cursor update, a buffer
// operation, or a unary request. Mirrors internal/wire's own
// single-key-present encoding.
type ClientFrame struct {
	Cursor    *wire.CursorEnvelope    `json:"cursor,omitempty"`
	Operation *wire.OperationEnvelope `json:"operation,omitempty"`
	Unary     *UnaryRequest           `json:"unary,omitempty"`
}

// ServerFrame is the tagged union of everything the server can send
// back: a cursor update, a buffer operation, a workspace event, or a
// unary response.
type ServerFrame struct {
	Cursor    *wire.CursorEnvelope    `json:"cursor,omitempty"`
	Operation *wire.OperationEnvelope `json:"operation,omitempty"`
	Event     *wire.WorkspaceEvent    `json:"event,omitempty"`
	Unary     *UnaryResponse          `json:"unary,omitempty"`
}

func (f ClientFrame) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case f.Cursor != nil:
		result["cursor"] = f.Cursor
	case f.Operation != nil:
		result["operation"] = f.Operation
	case f.Unary != nil:
		result["unary"] = f.Unary
	}
	return json.Marshal(result)
}

func (f *ClientFrame) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cursor"]; ok {
		var env wire.CursorEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			return err
		}
		f.Cursor = &env
		return nil
	}
	if v, ok := raw["operation"]; ok {
		var env wire.OperationEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			return err
		}
		f.Operation = &env
		return nil
	}
	if v, ok := raw["unary"]; ok {
		var req UnaryRequest
		if err := json.Unmarshal(v, &req); err != nil {
			return err
		}
		f.Unary = &req
		return nil
	}
	return fmt.Errorf("transport: client frame with no recognized variant")
}

func (f ServerFrame) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case f.Cursor != nil:
		result["cursor"] = f.Cursor
	case f.Operation != nil:
		result["operation"] = f.Operation
	case f.Event != nil:
		result["event"] = f.Event
	case f.Unary != nil:
		result["unary"] = f.Unary
	}
	return json.Marshal(result)
}

func (f *ServerFrame) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cursor"]; ok {
		var env wire.CursorEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			return err
		}
		f.Cursor = &env
		return nil
	}
	if v, ok := raw["operation"]; ok {
		var env wire.OperationEnvelope
		if err := json.Unmarshal(v, &env); err != nil {
			return err
		}
		f.Operation = &env
		return nil
	}
	if v, ok := raw["event"]; ok {
		var ev wire.WorkspaceEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		f.Event = &ev
		return nil
	}
	if v, ok := raw["unary"]; ok {
		var resp UnaryResponse
		if err := json.Unmarshal(v, &resp); err != nil {
			return err
		}
		f.Unary = &resp
		return nil
	}
	return fmt.Errorf("transport: server frame with no recognized variant")
}
