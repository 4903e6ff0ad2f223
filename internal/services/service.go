package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/cache"
	"github.com/SAP-F-2025/olympiad-service/internal/events"
	"github.com/SAP-F-2025/olympiad-service/internal/matching"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
)

const serviceName = "olympiad-service"

// ===== SERVICE INTERFACES =====

type QuestionService interface {
	CreateMatchingQuestion(ctx context.Context, req *CreateMatchingQuestionRequest, user *models.AuthUser) (*models.Question, error)
	UpdateMatchingQuestion(ctx context.Context, id uint, req *UpdateMatchingQuestionRequest, user *models.AuthUser) (*models.Question, error)
	GetQuestion(ctx context.Context, id uint, user *models.AuthUser) (*models.Question, error)
	PresentQuestion(ctx context.Context, id uint) (*models.PresentedQuestion, error)
	SampleQuestions(ctx context.Context, req *SampleQuestionsRequest) ([]*models.PresentedQuestion, error)
}

type GradingService interface {
	// CalculateScore grades an answer against content that is not stored.
	CalculateScore(ctx context.Context, req *CalculateScoreRequest) (*AnswerResult, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, user *models.AuthUser) (*AnswerResult, error)
	GradeBatch(ctx context.Context, attemptID uint, req *BatchSubmitRequest, user *models.AuthUser) (*BatchGradeResponse, error)
}

type AttemptService interface {
	StartAttempt(ctx context.Context, req *StartAttemptRequest, user *models.AuthUser) (*models.Attempt, error)
	GetAttempt(ctx context.Context, id uint, user *models.AuthUser) (*models.Attempt, error)
	FinishAttempt(ctx context.Context, id uint, user *models.AuthUser) (*models.Attempt, error)
}

type ExportService interface {
	ExportAttemptResults(ctx context.Context, attemptID uint, user *models.AuthUser) ([]byte, error)
	ImportMatchingQuestions(ctx context.Context, reader io.Reader, user *models.AuthUser) (*models.ImportSummary, error)
}

// ===== REQUESTS AND RESPONSES =====

type CreateMatchingQuestionRequest struct {
	Text       string                 `json:"text" validate:"required,min=1,max=2000"`
	Points     int                    `json:"points" validate:"min=1,max=100"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Content    models.MatchingContent `json:"content"`
}

type UpdateMatchingQuestionRequest struct {
	Text       *string                 `json:"text" validate:"omitempty,min=1,max=2000"`
	Points     *int                    `json:"points" validate:"omitempty,min=1,max=100"`
	Difficulty *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Content    *models.MatchingContent `json:"content"`
}

type SampleQuestionsRequest struct {
	Count      int                     `json:"count" form:"count" validate:"min=1,max=100"`
	Types      []models.QuestionType   `json:"types" form:"types" validate:"omitempty,dive,question_type"`
	Difficulty *models.DifficultyLevel `json:"difficulty" form:"difficulty" validate:"omitempty,difficulty_level"`
}

type CalculateScoreRequest struct {
	Points  int                    `json:"points" validate:"min=1,max=100"`
	Content models.MatchingContent `json:"content"`
	Answer  json.RawMessage        `json:"answer"`
}

type SubmitAnswerRequest struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	Answer     json.RawMessage `json:"answer"`
}

type BatchSubmitRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" validate:"required,min=1,max=200,dive"`
}

type StartAttemptRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// AnswerResult is the graded outcome of one answer.
type AnswerResult struct {
	QuestionID uint                  `json:"question_id,omitempty"`
	IsCorrect  bool                  `json:"is_correct"`
	Points     int                   `json:"points"`
	MaxPoints  int                   `json:"max_points"`
	Canonical  string                `json:"canonical"`
	Answered   int                   `json:"answered"`
	Total      int                   `json:"total"`
	Reason     models.GradingReason  `json:"reason"`
	Breakdown  []matching.PairResult `json:"breakdown,omitempty"`
}

type BatchGradeResponse struct {
	AttemptID uint            `json:"attempt_id"`
	Results   []*AnswerResult `json:"results"`
	Score     int             `json:"score"`
	MaxScore  int             `json:"max_score"`
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Question() QuestionService
	Grading() GradingService
	Attempt() AttemptService
	Export() ExportService
}

// Dependencies are the collaborators shared by all services
type Dependencies struct {
	Repo      repositories.Repository
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Validator *validator.Validator
	Logger    *slog.Logger
	CacheTTL  time.Duration
}

type serviceManager struct {
	question QuestionService
	grading  GradingService
	attempt  AttemptService
	export   ExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 10 * time.Minute
	}

	store := NewQuestionLoader(deps.Repo.Question(), deps.Cache, deps.CacheTTL, deps.Logger)
	questions := NewQuestionService(deps.Repo, store, deps.Validator, deps.Logger)

	return &serviceManager{
		question: questions,
		grading:  NewGradingService(deps.Repo, store, deps.Publisher, deps.Validator, deps.Logger),
		attempt:  NewAttemptService(deps.Repo, deps.Publisher, deps.Validator, deps.Logger),
		export:   NewExportService(deps.Repo, questions, deps.Logger),
	}
}

func (m *serviceManager) Question() QuestionService { return m.question }
func (m *serviceManager) Grading() GradingService   { return m.grading }
func (m *serviceManager) Attempt() AttemptService   { return m.attempt }
func (m *serviceManager) Export() ExportService     { return m.export }
