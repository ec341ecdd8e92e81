package api

import "testing"

func TestTextChangeApplyInsertion(t *testing.T) {
	change := TextChange{Start: 5, End: 5, Content: " cruel"}
	got := change.Apply("hello world!")
	if want := "hello cruel world!"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTextChangeApplyDeletion(t *testing.T) {
	change := TextChange{Start: 5, End: 11}
	got := change.Apply("hello cruel world!")
	if want := "hello world!"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTextChangeApplyReplacement(t *testing.T) {
	change := TextChange{Start: 5, End: 11, Content: " not very pleasant"}
	got := change.Apply("hello cruel world!")
	if want := "hello not very pleasant world!"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTextChangeApplyNeverPanics(t *testing.T) {
	change := TextChange{Start: 100, End: 110, Content: "a very long string \n which totally matters"}
	got := change.Apply("a short text")
	want := "a short texta very long string \n which totally matters"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEmptyTextChangeDoesNotAlterBuffer(t *testing.T) {
	change := TextChange{Start: 42, End: 42}
	got := change.Apply("some important text")
	if want := "some important text"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if !change.IsEmpty() {
		t.Fatalf("expected change to report IsEmpty")
	}
}

func TestTextChangeIsInsertIsDelete(t *testing.T) {
	insert := TextChange{Start: 2, End: 2, Content: "x"}
	if !insert.IsInsert() || insert.IsDelete() {
		t.Fatalf("expected pure insert, got insert=%v delete=%v", insert.IsInsert(), insert.IsDelete())
	}

	del := TextChange{Start: 2, End: 4}
	if !del.IsDelete() || del.IsInsert() {
		t.Fatalf("expected pure delete, got insert=%v delete=%v", del.IsInsert(), del.IsDelete())
	}

	replace := TextChange{Start: 2, End: 4, Content: "xy"}
	if !replace.IsDelete() || !replace.IsInsert() {
		t.Fatalf("replacement should be both insert and delete")
	}
}

func TestFromDiffInsertion(t *testing.T) {
	change := FromDiff("hello world", "hello cruel world")
	got := change.Apply("hello world")
	if want := "hello cruel world"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFromDiffNoChange(t *testing.T) {
	change := FromDiff("hello world", "hello world")
	if !change.IsEmpty() {
		t.Fatalf("expected no-op change for identical strings")
	}
}

func TestFromDiffDeletion(t *testing.T) {
	change := FromDiff("hello cruel world", "hello world")
	got := change.Apply("hello cruel world")
	if want := "hello world"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
