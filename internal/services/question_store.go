package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/cache"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
)

// cachedQuestion keeps the answer key, which models.Question hides from JSON.
type cachedQuestion struct {
	Question      *models.Question `json:"question"`
	CorrectAnswer string           `json:"correct_answer"`
}

// QuestionLoader reads questions by id. Invalidate drops any copy kept for id
// after the question was edited.
type QuestionLoader interface {
	Get(ctx context.Context, id uint) (*models.Question, error)
	Invalidate(ctx context.Context, id uint)
}

// questionStore reads questions through the cache.
// Cache failures are logged and fall through to the repository.
type questionStore struct {
	repo   repositories.QuestionRepository
	cache  cache.CacheService
	ttl    time.Duration
	logger *slog.Logger
}

// NewQuestionLoader returns the cache-aside loader shared by the question and
// grading services.
func NewQuestionLoader(repo repositories.QuestionRepository, c cache.CacheService, ttl time.Duration, logger *slog.Logger) QuestionLoader {
	return &questionStore{repo: repo, cache: c, ttl: ttl, logger: logger}
}

func (s *questionStore) Get(ctx context.Context, id uint) (*models.Question, error) {
	key := cache.QuestionKey(id)

	var entry cachedQuestion
	err := s.cache.Get(ctx, key, &entry)
	if err == nil && entry.Question != nil {
		entry.Question.CorrectAnswer = entry.CorrectAnswer
		return entry.Question, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Question cache unavailable", "question_id", id, "error", err)
	}

	question, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	entry = cachedQuestion{Question: question, CorrectAnswer: question.CorrectAnswer}
	if err := s.cache.Set(ctx, key, entry, s.ttl); err != nil {
		s.logger.Warn("Failed to cache question", "question_id", id, "error", err)
	}
	return question, nil
}

func (s *questionStore) Invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, cache.QuestionKey(id)); err != nil {
		s.logger.Warn("Failed to invalidate cached question", "question_id", id, "error", err)
	}
}
