package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// Attempt is one student's sitting of an olympiad round.
type Attempt struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	StudentID   string        `json:"student_id" gorm:"not null;size:255;index"`
	Title       string        `json:"title" gorm:"size:200"`
	Status      AttemptStatus `json:"status" gorm:"not null;size:32;default:in_progress;index"`
	Score       int           `json:"score" gorm:"not null;default:0"`
	MaxScore    int           `json:"max_score" gorm:"not null;default:0"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Answers []StudentAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

type GradingReason string

const (
	ReasonCorrect             GradingReason = "correct"
	ReasonWrong               GradingReason = "wrong"
	ReasonMalformedSubmission GradingReason = "malformed_submission"
	ReasonUngradable          GradingReason = "ungradable"
)

// StudentAnswer is written once per question per attempt.
type StudentAnswer struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	AttemptID  uint           `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question;index"`
	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb"`
	Canonical  string         `json:"canonical" gorm:"type:text"`
	IsCorrect  bool           `json:"is_correct" gorm:"not null;default:false"`
	Points     int            `json:"points" gorm:"not null;default:0"`
	MaxPoints  int            `json:"max_points" gorm:"not null;default:0"`
	Reason     GradingReason  `json:"reason" gorm:"size:32"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}
