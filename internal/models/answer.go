package models

import "github.com/SAP-F-2025/olympiad-service/internal/matching"

// MatchingAnswer is the envelope the exam client sends for a matching question.
// Bare keyed objects and pair arrays are accepted as well; see matching.ParseSubmission.
type MatchingAnswer struct {
	Pairs     []matching.Pair `json:"pairs"`
	TimeSpent int             `json:"time_spent,omitempty"`
}

// PresentedQuestion is the student-facing view of a matching question.
// It carries neither the pairs nor the answer key.
//
// When RightShuffled is set the right column is not in authored order and
// answers must name right items by id; positional right references are
// graded as unanswered.
type PresentedQuestion struct {
	ID            uint            `json:"id"`
	Type          QuestionType    `json:"type"`
	Text          string          `json:"text"`
	Points        int             `json:"points"`
	LeftItems     []matching.Item `json:"left_items"`
	RightItems    []matching.Item `json:"right_items"`
	RightShuffled bool            `json:"right_shuffled,omitempty"`
}
