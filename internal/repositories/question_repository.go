package repositories

import (
	"context"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error

	// Query operations
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)
	GetRandom(ctx context.Context, filters RandomQuestionFilters) ([]*models.Question, error)

	// HasAnswers reports whether any student answer references the question.
	HasAnswers(ctx context.Context, id uint) (bool, error)
}
