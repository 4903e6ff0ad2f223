// Package matching grades matching questions.
//
// A pairing, whether it is the authored answer key or a student's submission,
// is reduced to one canonical string. Grading is a string comparison against
// the stored key, so the authoring path and the grading path must both go
// through Normalize.
package matching

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TypeMatching is the question type handled by this package.
const TypeMatching = "matching"

const (
	pairSep    = "|"
	posSep     = ":"
	unanswered = "-"
)

// ErrNotMatching is returned when Score is called for another question type.
var ErrNotMatching = errors.New("question is not a matching question")

// ErrInvalidCanonical is returned by Decode for strings Normalize cannot produce.
var ErrInvalidCanonical = errors.New("invalid canonical matching answer")

// Item is one entry of the left or right column.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Pair associates a left item with its right item by id.
type Pair struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

// Question is the read-only view of a matching question needed for grading.
//
// RightByID is set when students see the right column in an order other than
// the authored one. Positions then mean nothing to the grader, so right
// references only resolve by item id.
type Question struct {
	Type          string
	LeftItems     []Item
	RightItems    []Item
	CorrectAnswer string
	Points        int
	RightByID     bool
}

// Result is the outcome of grading one submission. Points is all-or-nothing.
type Result struct {
	IsCorrect bool         `json:"is_correct"`
	Points    int          `json:"points"`
	Canonical string       `json:"canonical"`
	Answered  int          `json:"answered"`
	Breakdown []PairResult `json:"breakdown,omitempty"`
}

// PairResult reports a single left item for feedback. It never affects Points.
type PairResult struct {
	LeftID   string `json:"left_id"`
	RightID  string `json:"right_id,omitempty"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
}

// Normalize encodes the associations of sub as a canonical string.
//
// Left positions are visited in ascending order and each is written as
// "<left>:<right>", joined with "|". Unanswered or unresolvable left items are
// written with "-" in place of the right position. The result depends only on
// the set of associations, not on the order or shape they were supplied in.
func Normalize(sub Submission, left, right []Item) string {
	return encode(resolve(sub, left, right, false))
}

// BuildCorrectAnswer produces the stored answer key for the authored pairs.
func BuildCorrectAnswer(pairs []Pair, left, right []Item) string {
	return Normalize(FromPairs(pairs), left, right)
}

// Score grades sub against q.
func Score(q Question, sub Submission) (Result, error) {
	if q.Type != TypeMatching {
		return Result{}, fmt.Errorf("%w: %q", ErrNotMatching, q.Type)
	}

	slots := resolve(sub, q.LeftItems, q.RightItems, q.RightByID)
	canonical := encode(slots)

	result := Result{
		IsCorrect: canonical == q.CorrectAnswer,
		Canonical: canonical,
		Answered:  countAnswered(slots),
	}
	if result.IsCorrect {
		result.Points = q.Points
	}

	if expected, err := Decode(q.CorrectAnswer); err == nil && len(expected) == len(slots) {
		result.Breakdown = breakdown(slots, expected, q.LeftItems, q.RightItems)
	}

	return result, nil
}

// Decode turns a canonical string back into right positions indexed by left
// position; -1 marks an unanswered left item.
func Decode(canonical string) ([]int, error) {
	if canonical == "" {
		return []int{}, nil
	}

	segments := strings.Split(canonical, pairSep)
	out := make([]int, len(segments))
	for i, segment := range segments {
		l, r, ok := strings.Cut(segment, posSep)
		if !ok {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidCanonical, segment)
		}
		if pos, err := strconv.Atoi(l); err != nil || pos != i {
			return nil, fmt.Errorf("%w: left position %q", ErrInvalidCanonical, l)
		}
		if r == unanswered {
			out[i] = -1
			continue
		}
		pos, err := strconv.Atoi(r)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w: right position %q", ErrInvalidCanonical, r)
		}
		out[i] = pos
	}
	return out, nil
}

// resolve maps every left position to a right position, or -1.
func resolve(sub Submission, left, right []Item, rightByID bool) []int {
	slots := make([]int, len(left))
	conflict := make([]bool, len(left))
	for i := range slots {
		slots[i] = -1
	}

	for _, assoc := range sub.associations() {
		l, ok := assoc.Left.resolve(left)
		if !ok {
			continue
		}
		resolveRight := assoc.Right.resolve
		if rightByID {
			resolveRight = assoc.Right.resolveID
		}
		r, ok := resolveRight(right)
		if !ok {
			continue
		}
		switch {
		case conflict[l]:
		case slots[l] == -1:
			slots[l] = r
		case slots[l] != r:
			// Two different answers for one left item: neither is taken.
			conflict[l] = true
		}
	}

	for i := range slots {
		if conflict[i] {
			slots[i] = -1
		}
	}
	return slots
}

func encode(slots []int) string {
	var b strings.Builder
	for l, r := range slots {
		if l > 0 {
			b.WriteString(pairSep)
		}
		b.WriteString(strconv.Itoa(l))
		b.WriteString(posSep)
		if r < 0 {
			b.WriteString(unanswered)
			continue
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}

func countAnswered(slots []int) int {
	n := 0
	for _, r := range slots {
		if r >= 0 {
			n++
		}
	}
	return n
}

func breakdown(slots, expected []int, left, right []Item) []PairResult {
	out := make([]PairResult, len(slots))
	for l, r := range slots {
		pr := PairResult{LeftID: left[l].ID, Answered: r >= 0}
		if r >= 0 {
			pr.RightID = right[r].ID
			pr.Correct = r == expected[l]
		}
		out[l] = pr
	}
	return out
}
