// Package api defines the editor-facing value types shared across the
// buffer, cursor and workspace controllers: TextChange, Cursor, User,
// Config and the workspace Event enum.
package api

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/hexedtech/codemp/pkg/ot"
)

// TextChange is an editor-friendly representation of a change to a
// buffer, expressed as a rune range to replace with new content.
//
// To insert "a" after the 4th character: TextChange{Start: 4, End: 4, Content: "a"}.
// To delete the 4th character: TextChange{Start: 3, End: 4}.
type TextChange struct {
	Start   uint32
	End     uint32
	Content string
	// Hash is the content hash after applying this change, when known.
	// Not every change carries one: it is advisory, used for resync
	// detection rather than as a correctness guarantee.
	Hash *int64
}

// Span returns the [Start, End) rune range this change replaces.
func (c TextChange) Span() (start, end uint32) { return c.Start, c.End }

// IsDelete reports whether this change removes existing text. Not
// mutually exclusive with IsInsert.
func (c TextChange) IsDelete() bool { return c.Start < c.End }

// IsInsert reports whether this change adds new text. Not mutually
// exclusive with IsDelete.
func (c TextChange) IsInsert() bool { return c.Content != "" }

// IsEmpty reports whether this change is effectively a no-op.
func (c TextChange) IsEmpty() bool { return !c.IsDelete() && !c.IsInsert() }

// Apply returns txt with the [Start, End) rune range replaced by Content.
// Out-of-range bounds are clamped rather than causing a panic.
func (c TextChange) Apply(txt string) string {
	runes := []rune(txt)

	preEnd := int(c.Start)
	if preEnd > len(runes) {
		preEnd = len(runes)
	}
	pre := string(runes[:preEnd])

	postStart := int(c.End)
	var post string
	if postStart < len(runes) {
		post = string(runes[postStart:])
	}

	return pre + c.Content + post
}

// ToOperationSeq converts this change into an OperationSeq against a
// buffer of baseLen runes.
func (c TextChange) ToOperationSeq(baseLen uint64) *ot.OperationSeq {
	seq := ot.NewOperationSeq()
	seq.Retain(uint64(c.Start))
	seq.Delete(uint64(c.End - c.Start))
	seq.Insert(c.Content)
	seq.Retain(baseLen - uint64(c.End))
	return seq
}

// FromDiff computes the minimal TextChange that turns previous into
// current, using a character-level diff in the manner of the Rust
// client's similar::TextDiff::from_chars-backed OperationFactory::diff.
func FromDiff(previous, current string) TextChange {
	curRunes := []rune(current)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(previous, current, false)

	var pos uint32
	start, end := -1, -1
	var content []rune
	var pending []rune // equal text seen since the first edit, kept only if another edit follows

	for _, d := range diffs {
		n := uint32(len([]rune(d.Text)))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += n
			if start != -1 {
				pending = append(pending, []rune(d.Text)...)
			}
		case diffmatchpatch.DiffDelete:
			if start == -1 {
				start = int(pos)
			}
			content = append(content, pending...)
			pending = nil
			pos += n
			end = int(pos)
		case diffmatchpatch.DiffInsert:
			if start == -1 {
				start = int(pos)
			}
			content = append(content, pending...)
			pending = nil
			end = int(pos)
			content = append(content, []rune(d.Text)...)
		}
	}

	if start == -1 {
		return TextChange{}
	}
	if end == -1 {
		end = start
	}

	hash := hashOf(curRunes)
	return TextChange{
		Start:   uint32(start),
		End:     uint32(end),
		Content: string(content),
		Hash:    &hash,
	}
}

func hashOf(runes []rune) int64 {
	return contentHash(string(runes))
}
