package api

import "github.com/google/uuid"

// RowCol is a 0-indexed (row, column) position in a buffer.
type RowCol struct {
	Row int32
	Col int32
}

// Cursor is a remote user's cursor position in a buffer.
type Cursor struct {
	Start  RowCol
	End    RowCol
	Buffer string
	// User identifies the cursor's owner. Nil when this Cursor is being
	// sent outbound by its own owner, who is implicit; set when received
	// from the workspace's broadcast of other users' positions.
	User *uuid.UUID
}
