package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a AnswerPostgreSQL) Create(ctx context.Context, answer *models.StudentAnswer) error {
	if err := a.db.WithContext(ctx).Create(answer).Error; err != nil {
		err = translateError(err)
		if errors.Is(err, repositories.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to create answer: %w", err)
	}
	return nil
}

func (a AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.StudentAnswer, error) {
	var answers []*models.StudentAnswer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers for attempt %d: %w", attemptID, err)
	}
	return answers, nil
}

func (a AnswerPostgreSQL) ExistsForAttemptQuestion(ctx context.Context, attemptID, questionID uint) (bool, error) {
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.StudentAnswer{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check answer: %w", err)
	}
	return count > 0, nil
}
