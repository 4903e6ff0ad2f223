package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAttemptClosed is returned when a write targets an attempt that is no longer in progress.
	ErrAttemptClosed = errors.New("attempt is not in progress")
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	CreatedBy  *string                 `json:"created_by"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "points", "id"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

type RandomQuestionFilters struct {
	Types      []models.QuestionType   `json:"types"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	ExcludeIDs []uint                  `json:"exclude_ids"`
	Count      int                     `json:"count"`
}

// Repository groups the repositories that take part in one unit of work.
type Repository interface {
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// WithTransaction runs fn against repositories bound to a single transaction.
	// The transaction is rolled back when fn returns an error.
	WithTransaction(ctx context.Context, fn func(tx Repository) error) error
}

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
