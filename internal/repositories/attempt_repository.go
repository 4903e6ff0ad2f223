package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
)

// AttemptRepository interface for attempt operations
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// MarkSubmitted moves an in-progress attempt to submitted. It fails with
	// ErrAttemptClosed when the attempt was already submitted.
	MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) error

	// AddScore atomically adds points to an in-progress attempt. A submitted
	// attempt is left untouched and ErrAttemptClosed is returned.
	AddScore(ctx context.Context, id uint, points, maxPoints int) error
}

// AnswerRepository interface for student answers
type AnswerRepository interface {
	// Create stores a graded answer. A second answer for the same
	// attempt and question fails with ErrDuplicate.
	Create(ctx context.Context, answer *models.StudentAnswer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.StudentAnswer, error)
	ExistsForAttemptQuestion(ctx context.Context, attemptID, questionID uint) (bool, error)
}
