package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"gorm.io/gorm"
)

var questionSortColumns = map[string]string{
	"created_at": "created_at",
	"points":     "points",
	"id":         "id",
}

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", translateError(err))
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	result := q.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"text":           question.Text,
			"points":         question.Points,
			"difficulty":     question.Difficulty,
			"content":        question.Content,
			"correct_answer": question.CorrectAnswer,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update question %d: %w", question.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	column, ok := questionSortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(column + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) GetRandom(ctx context.Context, filters repositories.RandomQuestionFilters) ([]*models.Question, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})

	if len(filters.Types) > 0 {
		query = query.Where("type IN ?", filters.Types)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if len(filters.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filters.ExcludeIDs)
	}
	if filters.Count > 0 {
		query = query.Limit(filters.Count)
	}

	var questions []*models.Question
	if err := query.Order("RANDOM()").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get random questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) HasAnswers(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&models.StudentAnswer{}).
		Where("question_id = ?", id).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check answers for question %d: %w", id, err)
	}
	return count > 0, nil
}
