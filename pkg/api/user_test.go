package api

import (
	"testing"

	"github.com/google/uuid"
)

func TestUserOrderingByID(t *testing.T) {
	a := User{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Name: "zeta"}
	b := User{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Name: "alpha"}

	if !a.Less(b) {
		t.Fatalf("expected a to sort before b by id regardless of name")
	}
	if a.Equal(b) {
		t.Fatalf("users with different ids should not be equal")
	}

	c := User{ID: a.ID, Name: "different name, same id"}
	if !a.Equal(c) {
		t.Fatalf("users with the same id should be equal even with different names")
	}
}
