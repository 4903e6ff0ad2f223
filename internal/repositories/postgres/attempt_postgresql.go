package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", translateError(err))
	}
	return nil
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attempt %d: %w", id, err)
	}
	return &attempt, nil
}

// MarkSubmitted closes an in-progress attempt. Score columns are left to
// AddScore so that points committed concurrently are never overwritten.
func (a AttemptPostgreSQL) MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) error {
	result := a.inProgress(ctx, id).Updates(map[string]interface{}{
		"status":       models.AttemptSubmitted,
		"submitted_at": submittedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to submit attempt %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return a.closedOrMissing(ctx, id)
	}
	return nil
}

func (a AttemptPostgreSQL) AddScore(ctx context.Context, id uint, points, maxPoints int) error {
	result := a.inProgress(ctx, id).Updates(map[string]interface{}{
		"score":     gorm.Expr("score + ?", points),
		"max_score": gorm.Expr("max_score + ?", maxPoints),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to add score to attempt %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return a.closedOrMissing(ctx, id)
	}
	return nil
}

func (a AttemptPostgreSQL) inProgress(ctx context.Context, id uint) *gorm.DB {
	return a.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress)
}

// closedOrMissing explains why a guarded update touched no row.
func (a AttemptPostgreSQL) closedOrMissing(ctx context.Context, id uint) error {
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check attempt %d: %w", id, err)
	}
	if count == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrAttemptClosed
}
