package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/events"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, validator *validator.Validator, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: serviceName, Component: "attempt"}),
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *attemptService) StartAttempt(ctx context.Context, req *StartAttemptRequest, user *models.AuthUser) (attempt *models.Attempt, err error) {
	op := s.opLogger.WithOperation(ctx, "start_attempt", user.ID)
	defer func() {
		var id uint
		if attempt != nil {
			id = attempt.ID
		}
		op.LogResult(id, "attempt", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt = &models.Attempt{
		StudentID: user.ID,
		Title:     req.Title,
		Status:    models.AttemptInProgress,
		StartedAt: s.now(),
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "student_id", user.ID)
	s.publish(ctx, events.NewAttemptStartedEvent(attempt.ID, attempt.StudentID, attempt.Title, attempt.StartedAt))

	return attempt, nil
}

func (s *attemptService) GetAttempt(ctx context.Context, id uint, user *models.AuthUser) (*models.Attempt, error) {
	attempt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != user.ID && !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, id, "attempt", "read", "not the attempt owner")
	}
	return attempt, nil
}

// FinishAttempt closes the attempt. Its score is the sum already accumulated
// by graded answers.
func (s *attemptService) FinishAttempt(ctx context.Context, id uint, user *models.AuthUser) (attempt *models.Attempt, err error) {
	op := s.opLogger.WithOperation(ctx, "finish_attempt", user.ID)
	defer func() { op.LogResult(id, "attempt", err) }()

	attempt, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != user.ID {
		return nil, NewPermissionError(user.ID, id, "attempt", "finish", "not the attempt owner")
	}
	if attempt.Status == models.AttemptSubmitted {
		return nil, ErrAttemptAlreadySubmitted
	}

	submittedAt := s.now()
	if err := s.repo.Attempt().MarkSubmitted(ctx, id, submittedAt); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAttemptClosed):
			return nil, ErrAttemptAlreadySubmitted
		case repositories.IsNotFoundError(err):
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to finish attempt: %w", err)
	}

	// answers graded while the attempt was being closed are part of the score
	attempt, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, answer := range attempt.Answers {
		if answer.IsCorrect {
			correct++
		}
	}
	s.publish(ctx, events.NewAttemptFinishedEvent(events.AttemptGradedEvent{
		AttemptID:    attempt.ID,
		StudentID:    attempt.StudentID,
		GradedAt:     submittedAt,
		AnswerCount:  len(attempt.Answers),
		CorrectCount: correct,
		Score:        attempt.Score,
		MaxScore:     attempt.MaxScore,
	}))

	return attempt, nil
}

func (s *attemptService) load(ctx context.Context, id uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt event", "event_type", event.Type, "error", err)
	}
}
