// Package wire defines the JSON messages exchanged with a codemp server
// over the websocket duplex transport. Tagged unions are represented as
// a struct of optional pointer fields with exactly one set per message,
// with a custom Marshal/Unmarshal pair collapsing that to a single JSON
// key on the wire.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/hexedtech/codemp/pkg/ot"
)

// OperationEnvelope carries a single OperationSeq alongside the buffer
// path and user it came from.
type OperationEnvelope struct {
	Path   string           `json:"path"`
	UserID string           `json:"user"`
	Op     *ot.OperationSeq `json:"op"`
}

// CursorEnvelope carries a cursor position update tagged with its
// owning user.
type CursorEnvelope struct {
	UserID string `json:"user"`
	Buffer string `json:"buffer"`
	Start  RowCol `json:"start"`
	End    RowCol `json:"end"`
}

// RowCol mirrors api.RowCol on the wire without importing pkg/api, to
// keep this package dependency-free of the higher-level client types.
type RowCol struct {
	Row int32 `json:"row"`
	Col int32 `json:"col"`
}

// WorkspaceEvent is the tagged union of filetree and membership events
// a workspace subscription stream delivers: exactly one of Join, Leave,
// Create, Rename or Delete is set per message.
type WorkspaceEvent struct {
	Join   *UserEvent   `json:"join,omitempty"`
	Leave  *UserEvent   `json:"leave,omitempty"`
	Create *FileEvent   `json:"create,omitempty"`
	Rename *RenameEvent `json:"rename,omitempty"`
	Delete *FileEvent   `json:"delete,omitempty"`
}

// UserEvent names a user joining or leaving the workspace.
type UserEvent struct {
	UserID string `json:"user_id"`
}

// FileEvent names a file created or deleted in the workspace filetree.
type FileEvent struct {
	Path string `json:"path"`
}

// RenameEvent names a file moved within the workspace filetree.
type RenameEvent struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// MarshalJSON emits only the set variant.
func (e WorkspaceEvent) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{}, 1)
	switch {
	case e.Join != nil:
		result["join"] = e.Join
	case e.Leave != nil:
		result["leave"] = e.Leave
	case e.Create != nil:
		result["create"] = e.Create
	case e.Rename != nil:
		result["rename"] = e.Rename
	case e.Delete != nil:
		result["delete"] = e.Delete
	}
	return json.Marshal(result)
}

// UnmarshalJSON decodes whichever single variant is present.
func (e *WorkspaceEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["join"]; ok {
		var ev UserEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		e.Join = &ev
		return nil
	}
	if v, ok := raw["leave"]; ok {
		var ev UserEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		e.Leave = &ev
		return nil
	}
	if v, ok := raw["create"]; ok {
		var ev FileEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		e.Create = &ev
		return nil
	}
	if v, ok := raw["rename"]; ok {
		var ev RenameEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		e.Rename = &ev
		return nil
	}
	if v, ok := raw["delete"]; ok {
		var ev FileEvent
		if err := json.Unmarshal(v, &ev); err != nil {
			return err
		}
		e.Delete = &ev
		return nil
	}
	return fmt.Errorf("wire: workspace event with no recognized variant")
}
