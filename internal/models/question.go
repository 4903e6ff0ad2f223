package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/matching"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Essay          QuestionType = "essay"
	FillInBlank    QuestionType = "fill_blank"
	Matching       QuestionType = matching.TypeMatching
	Ordering       QuestionType = "ordering"
	ShortAnswer    QuestionType = "short_answer"
)

// QuestionTypes lists every type in the order questions are served.
var QuestionTypes = []QuestionType{
	MultipleChoice, TrueFalse, FillInBlank, ShortAnswer, Matching, Ordering, Essay,
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

type Question struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Type       QuestionType    `json:"type" gorm:"not null;size:32;index" validate:"required,question_type"`
	Text       string          `json:"text" gorm:"type:text;not null" validate:"required,min=1,max=2000"`
	Points     int             `json:"points" gorm:"not null;default:1" validate:"min=1,max=100"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"size:16;default:Medium" validate:"omitempty,difficulty_level"`

	// Type specific payload, e.g. MatchingContent
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`

	// Canonical answer key, produced by matching.BuildCorrectAnswer for matching questions
	CorrectAnswer string `json:"-" gorm:"type:text"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// MatchingContent is the content of a matching question.
type MatchingContent struct {
	LeftItems       []matching.Item `json:"left_items"`
	RightItems      []matching.Item `json:"right_items"`
	CorrectPairs    []matching.Pair `json:"correct_pairs"`
	AllowRightReuse bool            `json:"allow_right_reuse"`
	ShuffleRight    bool            `json:"shuffle_right"`
}

// MatchingContent decodes the question content as matching content.
func (q *Question) MatchingContent() (*MatchingContent, error) {
	if q.Type != Matching {
		return nil, fmt.Errorf("question %d is %s, not matching", q.ID, q.Type)
	}
	var content MatchingContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, fmt.Errorf("invalid matching content for question %d: %w", q.ID, err)
	}
	return &content, nil
}

// SetMatchingContent stores content and recomputes the answer key from it.
func (q *Question) SetMatchingContent(content *MatchingContent) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal matching content: %w", err)
	}
	q.Type = Matching
	q.Content = datatypes.JSON(raw)
	q.CorrectAnswer = matching.BuildCorrectAnswer(content.CorrectPairs, content.LeftItems, content.RightItems)
	return nil
}

// GradingView returns what the matching engine needs to grade this question.
func (q *Question) GradingView() (matching.Question, error) {
	content, err := q.MatchingContent()
	if err != nil {
		return matching.Question{}, err
	}
	return matching.Question{
		Type:          string(q.Type),
		LeftItems:     content.LeftItems,
		RightItems:    content.RightItems,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
		RightByID:     content.ShuffleRight,
	}, nil
}
