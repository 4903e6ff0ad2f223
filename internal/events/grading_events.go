package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	eventSource  = "olympiad-service"
	eventVersion = "1.0"
)

// EventType represents different types of grading events
type EventType string

const (
	EventAnswerGraded    EventType = "answer.graded"
	EventAttemptGraded   EventType = "attempt.graded"
	EventAttemptStarted  EventType = "attempt.started"
	EventAttemptFinished EventType = "attempt.finished"
)

// Event is the envelope every published event travels in
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AnswerGradedEvent struct {
	AttemptID  uint   `json:"attempt_id"`
	QuestionID uint   `json:"question_id"`
	StudentID  string `json:"student_id"`
	Canonical  string `json:"canonical"`
	IsCorrect  bool   `json:"is_correct"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
	Reason     string `json:"reason"`
}

type AttemptGradedEvent struct {
	AttemptID    uint      `json:"attempt_id"`
	StudentID    string    `json:"student_id"`
	GradedAt     time.Time `json:"graded_at"`
	AnswerCount  int       `json:"answer_count"`
	CorrectCount int       `json:"correct_count"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"max_score"`
	MalformedIDs []uint    `json:"malformed_question_ids,omitempty"`
}

type AttemptStartedEvent struct {
	AttemptID uint      `json:"attempt_id"`
	StudentID string    `json:"student_id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"started_at"`
}

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAnswerGradedEvent(data AnswerGradedEvent) *Event {
	return newEvent(EventAnswerGraded, data)
}

func NewAttemptGradedEvent(data AttemptGradedEvent) *Event {
	return newEvent(EventAttemptGraded, data)
}

func NewAttemptStartedEvent(attemptID uint, studentID, title string, startedAt time.Time) *Event {
	return newEvent(EventAttemptStarted, AttemptStartedEvent{
		AttemptID: attemptID,
		StudentID: studentID,
		Title:     title,
		StartedAt: startedAt,
	})
}

// NewAttemptFinishedEvent carries the final totals of a submitted attempt.
func NewAttemptFinishedEvent(data AttemptGradedEvent) *Event {
	return newEvent(EventAttemptFinished, data)
}
