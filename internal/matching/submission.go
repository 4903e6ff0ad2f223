package matching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedSubmission is returned when a submission is neither an object nor an array.
var ErrMalformedSubmission = errors.New("malformed matching submission")

type refKind int

const (
	refNone refKind = iota
	refID
	refIndex
	refInvalid
)

// Ref points at a left or right item, either by id or by position.
type Ref struct {
	kind  refKind
	id    string
	index int
}

// ID returns a reference to the item carrying id.
func ID(id string) Ref {
	return Ref{kind: refID, id: id}
}

// Index returns a reference to the item at position i.
func Index(i int) Ref {
	if i < 0 {
		return Ref{kind: refInvalid}
	}
	return Ref{kind: refIndex, index: i}
}

// IsZero reports whether the reference is empty (unanswered).
func (r Ref) IsZero() bool {
	return r.kind == refNone
}

func (r Ref) String() string {
	switch r.kind {
	case refID:
		return r.id
	case refIndex:
		return strconv.Itoa(r.index)
	case refInvalid:
		return "<invalid>"
	default:
		return ""
	}
}

// resolve returns the position of the referenced item in items.
// Ids win over positions; a numeric string is read as a position only when no item has that id.
func (r Ref) resolve(items []Item) (int, bool) {
	switch r.kind {
	case refID:
		for i, item := range items {
			if item.ID == r.id {
				return i, true
			}
		}
		n, err := strconv.Atoi(strings.TrimSpace(r.id))
		if err != nil || n < 0 || n >= len(items) {
			return 0, false
		}
		return n, true
	case refIndex:
		if r.index >= len(items) {
			return 0, false
		}
		return r.index, true
	default:
		return 0, false
	}
}

// resolveID matches item ids only.
func (r Ref) resolveID(items []Item) (int, bool) {
	if r.kind != refID {
		return 0, false
	}
	for i, item := range items {
		if item.ID == r.id {
			return i, true
		}
	}
	return 0, false
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	*r = refFromJSON(data)
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case refID:
		return json.Marshal(r.id)
	case refIndex:
		return json.Marshal(r.index)
	default:
		return []byte("null"), nil
	}
}

func refFromJSON(data []byte) Ref {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Ref{}
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Ref{kind: refInvalid}
		}
		if strings.TrimSpace(s) == "" {
			return Ref{}
		}
		return ID(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.Atoi(string(data))
		if err != nil {
			return Ref{kind: refInvalid}
		}
		return Index(n)
	default:
		return Ref{kind: refInvalid}
	}
}

// RefPair is one submitted association.
type RefPair struct {
	Left  Ref
	Right Ref
}

func (p *RefPair) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object: absorbed as an unanswered entry.
		*p = RefPair{}
		return nil
	}

	p.Left = firstRef(raw, "left", "left_id", "leftId")
	p.Right = firstRef(raw, "right", "right_id", "rightId")
	return nil
}

func firstRef(raw map[string]json.RawMessage, keys ...string) Ref {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			return refFromJSON(v)
		}
	}
	return Ref{}
}

// SubmissionKind tags which shape a submission arrived in.
type SubmissionKind int

const (
	KeyedSubmission SubmissionKind = iota
	PairListSubmission
)

func (k SubmissionKind) String() string {
	if k == PairListSubmission {
		return "pairs"
	}
	return "keyed"
}

// Submission is a student's pairing: either an object keyed by left reference
// or a list of pairs.
type Submission struct {
	Kind  SubmissionKind
	Keyed map[string]Ref
	Pairs []RefPair
}

// FromPairs builds a pair-list submission from id based pairs.
func FromPairs(pairs []Pair) Submission {
	out := make([]RefPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, RefPair{Left: ID(p.LeftID), Right: ID(p.RightID)})
	}
	return Submission{Kind: PairListSubmission, Pairs: out}
}

// FromMap builds a keyed submission from left id to right id.
func FromMap(m map[string]string) Submission {
	keyed := make(map[string]Ref, len(m))
	for left, right := range m {
		if right == "" {
			keyed[left] = Ref{}
			continue
		}
		keyed[left] = ID(right)
	}
	return Submission{Kind: KeyedSubmission, Keyed: keyed}
}

// ParseSubmission decodes a raw answer payload. An empty payload or JSON null
// is an empty submission; anything that is not an object or array is rejected.
func ParseSubmission(raw []byte) (Submission, error) {
	var s Submission
	if err := s.UnmarshalJSON(raw); err != nil {
		return Submission{}, err
	}
	return s, nil
}

func (s *Submission) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Submission{Kind: KeyedSubmission}
		return nil
	}

	switch data[0] {
	case '[':
		var pairs []RefPair
		if err := json.Unmarshal(data, &pairs); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
		}
		*s = Submission{Kind: PairListSubmission, Pairs: pairs}
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
		}

		// {"pairs": [...]} envelope; a keyed value is never an array.
		if inner, ok := obj["pairs"]; ok && len(obj) == 1 {
			if trimmed := bytes.TrimSpace(inner); len(trimmed) > 0 && trimmed[0] == '[' {
				return s.UnmarshalJSON(trimmed)
			}
		}

		keyed := make(map[string]Ref, len(obj))
		for key, value := range obj {
			keyed[key] = refFromJSON(value)
		}
		*s = Submission{Kind: KeyedSubmission, Keyed: keyed}
		return nil
	default:
		return ErrMalformedSubmission
	}
}

// associations flattens the submission into left/right reference pairs.
// Keyed entries are visited in map order; callers must not depend on it.
func (s Submission) associations() []RefPair {
	if s.Kind == PairListSubmission {
		return s.Pairs
	}
	out := make([]RefPair, 0, len(s.Keyed))
	for left, right := range s.Keyed {
		out = append(out, RefPair{Left: ID(left), Right: right})
	}
	return out
}
