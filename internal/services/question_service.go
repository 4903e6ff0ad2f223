package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	store     QuestionLoader
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	shuffle   func(n int, swap func(i, j int))
}

func NewQuestionService(repo repositories.Repository, store QuestionLoader, validator *validator.Validator, logger *slog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		store:     store,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: serviceName, Component: "question"}),
		validator: validator,
		shuffle:   rand.Shuffle,
	}
}

// ===== AUTHORING =====

func (s *questionService) CreateMatchingQuestion(ctx context.Context, req *CreateMatchingQuestionRequest, user *models.AuthUser) (question *models.Question, err error) {
	op := s.opLogger.WithOperation(ctx, "create_matching_question", user.ID)
	defer func() { op.LogResult(questionID(question), "question", err) }()

	if !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, 0, "question", "create", "only verified teachers and administrators can author questions")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question = &models.Question{
		Text:       req.Text,
		Points:     req.Points,
		Difficulty: req.Difficulty,
		CreatedBy:  user.ID,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if err := question.SetMatchingContent(&req.Content); err != nil {
		return nil, err
	}
	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Matching question created",
		"question_id", question.ID,
		"creator_id", user.ID,
		"left_items", len(req.Content.LeftItems),
		"right_items", len(req.Content.RightItems))

	return question, nil
}

func (s *questionService) UpdateMatchingQuestion(ctx context.Context, id uint, req *UpdateMatchingQuestionRequest, user *models.AuthUser) (question *models.Question, err error) {
	op := s.opLogger.WithOperation(ctx, "update_matching_question", user.ID)
	defer func() { op.LogResult(id, "question", err) }()

	if !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, id, "question", "update", "only verified teachers and administrators can author questions")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err = s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.Type != models.Matching {
		return nil, ErrQuestionInvalidType
	}
	if user.Role != models.RoleAdmin && question.CreatedBy != user.ID {
		return nil, NewPermissionError(user.ID, id, "question", "update", "not owner")
	}

	// A key change after students answered would make stored canonicals incomparable.
	locked, err := s.repo.Question().HasAnswers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check question usage: %w", err)
	}
	if locked {
		return nil, ErrQuestionLocked
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Content != nil {
		if err := question.SetMatchingContent(req.Content); err != nil {
			return nil, err
		}
	}
	// the merged question is checked as a whole, not just the changed fields
	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	s.store.Invalidate(ctx, id)

	return question, nil
}

func (s *questionService) GetQuestion(ctx context.Context, id uint, user *models.AuthUser) (*models.Question, error) {
	if !user.CanAuthor() {
		return nil, NewPermissionError(user.ID, id, "question", "read", "answer keys are visible to authors only")
	}
	return s.store.Get(ctx, id)
}

// ===== SERVING =====

func (s *questionService) PresentQuestion(ctx context.Context, id uint) (*models.PresentedQuestion, error) {
	question, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(question)
}

func (s *questionService) SampleQuestions(ctx context.Context, req *SampleQuestionsRequest) ([]*models.PresentedQuestion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetRandom(ctx, repositories.RandomQuestionFilters{
		Types:      req.Types,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}

	order := req.Types
	if len(order) == 0 {
		order = models.QuestionTypes
	}
	rank := func(t models.QuestionType) int {
		if i := slices.Index(order, t); i >= 0 {
			return i
		}
		return len(order)
	}
	slices.SortStableFunc(questions, func(a, b *models.Question) int {
		return cmp.Compare(rank(a.Type), rank(b.Type))
	})

	presented := make([]*models.PresentedQuestion, 0, len(questions))
	for _, question := range questions {
		view, err := s.present(question)
		if err != nil {
			s.logger.Warn("Skipping question with unreadable content", "question_id", question.ID, "error", err)
			continue
		}
		presented = append(presented, view)
	}
	return presented, nil
}

// present strips the answer key and, when requested, shuffles the right column.
func (s *questionService) present(question *models.Question) (*models.PresentedQuestion, error) {
	view := &models.PresentedQuestion{
		ID:     question.ID,
		Type:   question.Type,
		Text:   question.Text,
		Points: question.Points,
	}
	if question.Type != models.Matching {
		return view, nil
	}

	content, err := question.MatchingContent()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionInvalidContent, err)
	}

	view.LeftItems = slices.Clone(content.LeftItems)
	view.RightItems = slices.Clone(content.RightItems)
	if content.ShuffleRight {
		view.RightShuffled = true
		s.shuffle(len(view.RightItems), func(i, j int) {
			view.RightItems[i], view.RightItems[j] = view.RightItems[j], view.RightItems[i]
		})
	}
	return view, nil
}

func questionID(q *models.Question) uint {
	if q == nil {
		return 0
	}
	return q.ID
}
