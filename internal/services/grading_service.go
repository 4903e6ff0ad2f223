package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/events"
	"github.com/SAP-F-2025/olympiad-service/internal/matching"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const batchGradingWorkers = 8

type gradingService struct {
	repo      repositories.Repository
	store     QuestionLoader
	publisher events.EventPublisher
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
}

func NewGradingService(repo repositories.Repository, store QuestionLoader, publisher events.EventPublisher, validator *validator.Validator, logger *slog.Logger) GradingService {
	return &gradingService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: serviceName, Component: "grading"}),
		validator: validator,
	}
}

// ===== STATELESS PREVIEW =====

func (s *gradingService) CalculateScore(ctx context.Context, req *CalculateScoreRequest) (*AnswerResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.validator.Question().ValidateMatchingContent(&req.Content); err != nil {
		return nil, err
	}

	question := &models.Question{Points: req.Points}
	if err := question.SetMatchingContent(&req.Content); err != nil {
		return nil, err
	}

	return gradeAnswer(question, req.Answer), nil
}

// ===== ATTEMPT GRADING =====

func (s *gradingService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, user *models.AuthUser) (result *AnswerResult, err error) {
	op := s.opLogger.WithOperation(ctx, "submit_answer", user.ID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	attempt, err := s.activeAttempt(ctx, attemptID, user)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Answer().ExistsForAttemptQuestion(ctx, attempt.ID, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing answer: %w", err)
	}
	if exists {
		return nil, ErrAnswerAlreadySubmitted
	}

	question, err := s.store.Get(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if question.Type != models.Matching {
		return nil, gradingNotAllowed(question)
	}

	result = gradeAnswer(question, req.Answer)
	answer := newStudentAnswer(attempt.ID, req, result)

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Answer().Create(ctx, answer); err != nil {
			return err
		}
		return tx.Attempt().AddScore(ctx, attempt.ID, result.Points, result.MaxPoints)
	})
	if err != nil {
		return nil, storeAnswerError(err, "answer")
	}

	s.publish(ctx, events.NewAnswerGradedEvent(events.AnswerGradedEvent{
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		StudentID:  attempt.StudentID,
		Canonical:  result.Canonical,
		IsCorrect:  result.IsCorrect,
		Points:     result.Points,
		MaxPoints:  result.MaxPoints,
		Reason:     string(result.Reason),
	}))

	return result, nil
}

// GradeBatch grades every answer of the batch concurrently. An answer whose
// question is missing, of another type, or malformed scores zero without
// affecting the rest of the batch.
func (s *gradingService) GradeBatch(ctx context.Context, attemptID uint, req *BatchSubmitRequest, user *models.AuthUser) (resp *BatchGradeResponse, err error) {
	op := s.opLogger.WithOperation(ctx, "grade_batch", user.ID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkDistinctQuestions(req.Answers); err != nil {
		return nil, err
	}
	attempt, err := s.activeAttempt(ctx, attemptID, user)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Answer().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing answers: %w", err)
	}
	answered := make(map[uint]bool, len(existing))
	for _, a := range existing {
		answered[a.QuestionID] = true
	}
	for _, a := range req.Answers {
		if answered[a.QuestionID] {
			return nil, fmt.Errorf("%w: question %d", ErrAnswerAlreadySubmitted, a.QuestionID)
		}
	}

	results := make([]*AnswerResult, len(req.Answers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchGradingWorkers)
	for i := range req.Answers {
		submitted := &req.Answers[i]
		g.Go(func() error {
			question, err := s.store.Get(gctx, submitted.QuestionID)
			switch {
			case errors.Is(err, ErrQuestionNotFound):
				results[i] = ungradable(submitted.QuestionID, 0)
				return nil
			case err != nil:
				return err
			case question.Type != models.Matching:
				results[i] = ungradable(submitted.QuestionID, question.Points)
				return nil
			}
			results[i] = gradeAnswer(question, submitted.Answer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to grade batch: %w", err)
	}

	resp = &BatchGradeResponse{AttemptID: attempt.ID, Results: results}
	answers := make([]*models.StudentAnswer, len(results))
	var malformed []uint
	correct := 0
	for i, result := range results {
		resp.Score += result.Points
		resp.MaxScore += result.MaxPoints
		answers[i] = newStudentAnswer(attempt.ID, &req.Answers[i], result)
		if result.IsCorrect {
			correct++
		}
		if result.Reason == models.ReasonMalformedSubmission || result.Reason == models.ReasonUngradable {
			malformed = append(malformed, result.QuestionID)
		}
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, answer := range answers {
			if err := tx.Answer().Create(ctx, answer); err != nil {
				return err
			}
		}
		return tx.Attempt().AddScore(ctx, attempt.ID, resp.Score, resp.MaxScore)
	})
	if err != nil {
		return nil, storeAnswerError(err, "answers")
	}

	s.publish(ctx, events.NewAttemptGradedEvent(events.AttemptGradedEvent{
		AttemptID:    attempt.ID,
		StudentID:    attempt.StudentID,
		GradedAt:     time.Now().UTC(),
		AnswerCount:  len(results),
		CorrectCount: correct,
		Score:        resp.Score,
		MaxScore:     resp.MaxScore,
		MalformedIDs: malformed,
	}))

	return resp, nil
}

// ===== HELPERS =====

func (s *gradingService) activeAttempt(ctx context.Context, attemptID uint, user *models.AuthUser) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != user.ID {
		return nil, NewPermissionError(user.ID, attemptID, "attempt", "answer", "not the attempt owner")
	}
	switch attempt.Status {
	case models.AttemptInProgress:
		return attempt, nil
	case models.AttemptSubmitted:
		return nil, ErrAttemptAlreadySubmitted
	default:
		return nil, ErrAttemptNotActive
	}
}

func gradingNotAllowed(question *models.Question) error {
	bre := NewBusinessRuleError("auto_gradable_type",
		fmt.Sprintf("%s questions are not graded automatically", question.Type),
		map[string]interface{}{"question_id": question.ID, "question_type": question.Type})
	bre.Cause = ErrGradingNotAllowed
	return bre
}

// storeAnswerError maps a failed answer transaction. The attempt may have been
// finished after activeAttempt passed, in which case nothing was written.
func storeAnswerError(err error, what string) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrAnswerAlreadySubmitted
	case errors.Is(err, repositories.ErrAttemptClosed):
		return ErrAttemptAlreadySubmitted
	case repositories.IsNotFoundError(err):
		return ErrAttemptNotFound
	default:
		return fmt.Errorf("failed to store %s: %w", what, err)
	}
}

func (s *gradingService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish grading event", "event_type", event.Type, "error", err)
	}
}

// gradeAnswer scores raw against a matching question. It never fails: a
// payload that is not a submission, or content that cannot be read, scores zero.
func gradeAnswer(question *models.Question, raw []byte) *AnswerResult {
	result := &AnswerResult{
		QuestionID: question.ID,
		MaxPoints:  question.Points,
		Reason:     models.ReasonWrong,
	}

	view, err := question.GradingView()
	if err != nil {
		result.Reason = models.ReasonUngradable
		return result
	}
	result.Total = len(view.LeftItems)

	sub, err := matching.ParseSubmission(raw)
	if err != nil {
		result.Reason = models.ReasonMalformedSubmission
		return result
	}

	scored, err := matching.Score(view, sub)
	if err != nil {
		result.Reason = models.ReasonUngradable
		return result
	}

	result.IsCorrect = scored.IsCorrect
	result.Points = scored.Points
	result.Canonical = scored.Canonical
	result.Answered = scored.Answered
	result.Breakdown = scored.Breakdown
	if scored.IsCorrect {
		result.Reason = models.ReasonCorrect
	}
	return result
}

func ungradable(questionID uint, maxPoints int) *AnswerResult {
	return &AnswerResult{
		QuestionID: questionID,
		MaxPoints:  maxPoints,
		Reason:     models.ReasonUngradable,
	}
}

func newStudentAnswer(attemptID uint, req *SubmitAnswerRequest, result *AnswerResult) *models.StudentAnswer {
	answer := &models.StudentAnswer{
		AttemptID:  attemptID,
		QuestionID: req.QuestionID,
		Canonical:  result.Canonical,
		IsCorrect:  result.IsCorrect,
		Points:     result.Points,
		MaxPoints:  result.MaxPoints,
		Reason:     result.Reason,
	}
	// jsonb rejects bytes that are not JSON; keep malformed payloads as a JSON string.
	if len(req.Answer) > 0 && json.Valid(req.Answer) {
		answer.AnswerData = datatypes.JSON(req.Answer)
	} else if len(req.Answer) > 0 {
		quoted, _ := json.Marshal(string(req.Answer))
		answer.AnswerData = datatypes.JSON(quoted)
	}
	return answer
}

func checkDistinctQuestions(answers []SubmitAnswerRequest) error {
	var errs ValidationErrors
	seen := make(map[uint]bool, len(answers))
	for i, a := range answers {
		if seen[a.QuestionID] {
			errs.Add(fmt.Sprintf("answers[%d].question_id", i), "question answered twice in one batch", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
