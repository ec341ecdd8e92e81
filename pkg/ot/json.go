package ot

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the sequence as a compact array in the ot.js
// convention: a positive integer is a retain length, a negative integer
// is a delete length, and a string is inserted text.
func (s *OperationSeq) MarshalJSON() ([]byte, error) {
	raw := make([]interface{}, 0, len(s.ops))
	for _, op := range s.ops {
		switch op.Kind {
		case Retain:
			raw = append(raw, float64(op.N))
		case Delete:
			raw = append(raw, -float64(op.N))
		case Insert:
			raw = append(raw, op.Text)
		}
	}
	if raw == nil {
		raw = []interface{}{}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a sequence previously produced by MarshalJSON.
func (s *OperationSeq) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = OperationSeq{}
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			n := int64(v)
			switch {
			case n > 0:
				s.Retain(uint64(n))
			case n < 0:
				s.Delete(uint64(-n))
			default:
				return fmt.Errorf("ot: zero-length atom in encoded sequence")
			}
		case string:
			s.Insert(v)
		default:
			return fmt.Errorf("ot: unexpected atom type %T in encoded sequence", item)
		}
	}
	return nil
}

// FromJSON decodes a sequence from its wire string form.
func FromJSON(data string) (*OperationSeq, error) {
	s := NewOperationSeq()
	if err := s.UnmarshalJSON([]byte(data)); err != nil {
		return nil, err
	}
	return s, nil
}
