package api

import "github.com/google/uuid"

// User is a service user. ID should never change; Name can change but
// should stay unique, and is what other users see on their cursors and
// in the workspace user list.
type User struct {
	ID   uuid.UUID
	Name string
}

// Equal compares users by ID alone, ignoring Name.
func (u User) Equal(other User) bool { return u.ID == other.ID }

// Less orders users by ID, for deterministic sorting of user lists.
func (u User) Less(other User) bool {
	return u.ID.String() < other.ID.String()
}
