package ot

// OperationSeq is an ordered list of Retain/Insert/Delete atoms. It
// consumes BaseLen runes of input and produces TargetLen runes of
// output when applied.
type OperationSeq struct {
	ops       []Op
	baseLen   uint64
	targetLen uint64
}

// NewOperationSeq returns an empty operation sequence.
func NewOperationSeq() *OperationSeq {
	return &OperationSeq{}
}

// WithCapacity returns an empty operation sequence with its backing
// slice pre-sized, for callers building up large sequences atom by atom.
func WithCapacity(capacity int) *OperationSeq {
	return &OperationSeq{ops: make([]Op, 0, capacity)}
}

// BaseLen is the rune length this sequence expects to consume.
func (s *OperationSeq) BaseLen() uint64 { return s.baseLen }

// TargetLen is the rune length this sequence produces.
func (s *OperationSeq) TargetLen() uint64 { return s.targetLen }

// Ops returns the atoms of this sequence, in order. The returned slice
// must not be mutated by the caller.
func (s *OperationSeq) Ops() []Op { return s.ops }

// IsNoop reports whether applying this sequence changes nothing: either
// it has no atoms, or its only atom is a single Retain.
func (s *OperationSeq) IsNoop() bool {
	switch len(s.ops) {
	case 0:
		return true
	case 1:
		return s.ops[0].Kind == Retain
	default:
		return false
	}
}

// Retain appends a retain of n runes, merging into a trailing retain
// atom when possible.
func (s *OperationSeq) Retain(n uint64) {
	if n == 0 {
		return
	}
	s.baseLen += n
	s.targetLen += n
	if last := s.lastOp(); last != nil && last.Kind == Retain {
		last.N += n
		return
	}
	s.ops = append(s.ops, Op{Kind: Retain, N: n})
}

// Insert appends an insertion of text, merging into a trailing insert
// atom when possible. Canonical form keeps inserts ordered before a
// trailing delete at the same position, which matters for compose and
// transform correctness.
func (s *OperationSeq) Insert(text string) {
	if text == "" {
		return
	}
	s.targetLen += uint64(len([]rune(text)))

	if last := s.lastOp(); last != nil {
		if last.Kind == Insert {
			last.Text += text
			return
		}
		if last.Kind == Delete {
			// keep canonical insert-before-delete ordering
			if len(s.ops) >= 2 && s.ops[len(s.ops)-2].Kind == Insert {
				s.ops[len(s.ops)-2].Text += text
				return
			}
			s.ops = append(s.ops, Op{})
			copy(s.ops[len(s.ops)-1:], s.ops[len(s.ops)-2:len(s.ops)-1])
			s.ops[len(s.ops)-2] = Op{Kind: Insert, Text: text}
			return
		}
	}
	s.ops = append(s.ops, Op{Kind: Insert, Text: text})
}

// Delete appends a deletion of n runes, merging into a trailing delete
// atom when possible.
func (s *OperationSeq) Delete(n uint64) {
	if n == 0 {
		return
	}
	s.baseLen += n
	if last := s.lastOp(); last != nil && last.Kind == Delete {
		last.N += n
		return
	}
	s.ops = append(s.ops, Op{Kind: Delete, N: n})
}

func (s *OperationSeq) lastOp() *Op {
	if len(s.ops) == 0 {
		return nil
	}
	return &s.ops[len(s.ops)-1]
}

// LeadingNoop returns the length of a leading Retain atom, or 0.
func LeadingNoop(ops []Op) uint64 {
	if len(ops) == 0 || ops[0].Kind != Retain {
		return 0
	}
	return ops[0].N
}

// TrailingNoop returns the length of a trailing Retain atom, or 0.
func TrailingNoop(ops []Op) uint64 {
	if len(ops) == 0 || ops[len(ops)-1].Kind != Retain {
		return 0
	}
	return ops[len(ops)-1].N
}

// EffectiveRange is the [start,end) span of BaseLen this sequence
// actually touches, ignoring leading/trailing no-op retains.
func EffectiveRange(s *OperationSeq) (start, end uint64) {
	start = LeadingNoop(s.ops)
	end = s.baseLen - TrailingNoop(s.ops)
	return
}

// Apply runs this sequence against input, which must have exactly
// BaseLen runes, and returns the resulting string.
func (s *OperationSeq) Apply(input string) (string, error) {
	runes := []rune(input)
	if uint64(len(runes)) != s.baseLen {
		return "", &ErrLengthMismatch{Op: "apply: base", Expected: s.baseLen, Actual: uint64(len(runes))}
	}

	var out []rune
	var pos uint64
	for _, op := range s.ops {
		switch op.Kind {
		case Retain:
			out = append(out, runes[pos:pos+op.N]...)
			pos += op.N
		case Insert:
			out = append(out, []rune(op.Text)...)
		case Delete:
			pos += op.N
		}
	}
	return string(out), nil
}

// Invert returns the operation sequence that undoes s when applied to
// the buffer produced by s, given the original pre-state input.
func (s *OperationSeq) Invert(input string) *OperationSeq {
	runes := []rune(input)
	inv := NewOperationSeq()
	var pos uint64
	for _, op := range s.ops {
		switch op.Kind {
		case Retain:
			inv.Retain(op.N)
			pos += op.N
		case Insert:
			inv.Delete(uint64(len([]rune(op.Text))))
		case Delete:
			inv.Insert(string(runes[pos : pos+op.N]))
			pos += op.N
		}
	}
	return inv
}

// cursor walks the atoms of an OperationSeq one rune/insert-chunk at a
// time, letting compose/transform consume partial atoms without
// mutating the original sequence.
type cursor struct {
	ops []Op
	idx int
	cur *Op // remaining slice of ops[idx], nil if idx is exhausted
}

func newCursor(ops []Op) *cursor {
	c := &cursor{ops: ops}
	c.advance()
	return c
}

func (c *cursor) advance() {
	if c.idx < len(c.ops) {
		op := c.ops[c.idx]
		c.cur = &op
	} else {
		c.cur = nil
	}
}

func (c *cursor) next() {
	c.idx++
	c.advance()
}

// splitRetainOrDelete consumes at most n runes of the current Retain or
// Delete atom, returning how many runes it consumed and advancing past
// the atom if fully consumed.
func (c *cursor) splitRetainOrDelete(n uint64) uint64 {
	taken := c.cur.N
	if taken > n {
		taken = n
	}
	c.cur.N -= taken
	if c.cur.N == 0 {
		c.next()
	}
	return taken
}

func (c *cursor) splitInsert(n uint64) string {
	runes := []rune(c.cur.Text)
	if uint64(len(runes)) <= n {
		text := c.cur.Text
		c.next()
		return text
	}
	taken := string(runes[:n])
	c.cur.Text = string(runes[n:])
	return taken
}

// Compose returns an operation sequence equivalent to applying s then
// other: for any string of length BaseLen(s),
// other.Apply(s.Apply(str)) == s.Compose(other).Apply(str).
func (s *OperationSeq) Compose(other *OperationSeq) (*OperationSeq, error) {
	if s.targetLen != other.baseLen {
		return nil, &ErrLengthMismatch{Op: "compose", Expected: s.targetLen, Actual: other.baseLen}
	}

	result := NewOperationSeq()
	a := newCursor(s.ops)
	b := newCursor(other.ops)

	for a.cur != nil || b.cur != nil {
		if a.cur != nil && a.cur.Kind == Delete {
			result.Delete(a.cur.N)
			a.next()
			continue
		}
		if b.cur != nil && b.cur.Kind == Insert {
			result.Insert(b.cur.Text)
			b.next()
			continue
		}
		if a.cur == nil || b.cur == nil {
			return nil, &ErrLengthMismatch{Op: "compose: ran out of atoms", Expected: s.targetLen, Actual: other.baseLen}
		}

		switch {
		case a.cur.Kind == Retain && b.cur.Kind == Retain:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			result.Retain(n)
		case a.cur.Kind == Insert && b.cur.Kind == Retain:
			n := minU64(a.cur.runeLen(), b.cur.N)
			text := a.splitInsert(n)
			b.splitRetainOrDelete(n)
			result.Insert(text)
		case a.cur.Kind == Insert && b.cur.Kind == Delete:
			n := minU64(a.cur.runeLen(), b.cur.N)
			a.splitInsert(n)
			b.splitRetainOrDelete(n)
			// insert immediately deleted: cancels out, nothing emitted
		case a.cur.Kind == Retain && b.cur.Kind == Delete:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			result.Delete(n)
		default:
			return nil, &ErrLengthMismatch{Op: "compose: unexpected atom pairing", Expected: 0, Actual: 0}
		}
	}

	return result, nil
}

// Transform computes (a', b') over a common base such that
// compose(a, b') == compose(b, a') — the standard OT transform property.
func (s *OperationSeq) Transform(other *OperationSeq) (*OperationSeq, *OperationSeq, error) {
	if s.baseLen != other.baseLen {
		return nil, nil, &ErrLengthMismatch{Op: "transform", Expected: s.baseLen, Actual: other.baseLen}
	}

	aPrime := NewOperationSeq()
	bPrime := NewOperationSeq()
	a := newCursor(s.ops)
	b := newCursor(other.ops)

	for a.cur != nil || b.cur != nil {
		if a.cur != nil && a.cur.Kind == Insert {
			n := a.cur.runeLen()
			text := a.splitInsert(n)
			aPrime.Insert(text)
			bPrime.Retain(n)
			continue
		}
		if b.cur != nil && b.cur.Kind == Insert {
			n := b.cur.runeLen()
			text := b.splitInsert(n)
			aPrime.Retain(n)
			bPrime.Insert(text)
			continue
		}
		if a.cur == nil || b.cur == nil {
			return nil, nil, &ErrLengthMismatch{Op: "transform: ran out of atoms", Expected: s.baseLen, Actual: other.baseLen}
		}

		switch {
		case a.cur.Kind == Retain && b.cur.Kind == Retain:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			aPrime.Retain(n)
			bPrime.Retain(n)
		case a.cur.Kind == Delete && b.cur.Kind == Delete:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			// both delete the same region: nothing to replay either way
		case a.cur.Kind == Delete && b.cur.Kind == Retain:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			aPrime.Delete(n)
		case a.cur.Kind == Retain && b.cur.Kind == Delete:
			n := minU64(a.cur.N, b.cur.N)
			a.splitRetainOrDelete(n)
			b.splitRetainOrDelete(n)
			bPrime.Delete(n)
		default:
			return nil, nil, &ErrLengthMismatch{Op: "transform: unexpected atom pairing", Expected: 0, Actual: 0}
		}
	}

	return aPrime, bPrime, nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
