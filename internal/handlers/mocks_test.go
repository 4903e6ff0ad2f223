package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/olympiad-service/internal/auth"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/stretchr/testify/mock"
)

type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) CreateMatchingQuestion(ctx context.Context, req *services.CreateMatchingQuestionRequest, user *models.AuthUser) (*models.Question, error) {
	args := m.Called(ctx, req, user)
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) UpdateMatchingQuestion(ctx context.Context, id uint, req *services.UpdateMatchingQuestionRequest, user *models.AuthUser) (*models.Question, error) {
	args := m.Called(ctx, id, req, user)
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) GetQuestion(ctx context.Context, id uint, user *models.AuthUser) (*models.Question, error) {
	args := m.Called(ctx, id, user)
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) PresentQuestion(ctx context.Context, id uint) (*models.PresentedQuestion, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.PresentedQuestion), args.Error(1)
}

func (m *MockQuestionService) SampleQuestions(ctx context.Context, req *services.SampleQuestionsRequest) ([]*models.PresentedQuestion, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]*models.PresentedQuestion), args.Error(1)
}

type MockGradingService struct {
	mock.Mock
}

func (m *MockGradingService) CalculateScore(ctx context.Context, req *services.CalculateScoreRequest) (*services.AnswerResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*services.AnswerResult), args.Error(1)
}

func (m *MockGradingService) SubmitAnswer(ctx context.Context, attemptID uint, req *services.SubmitAnswerRequest, user *models.AuthUser) (*services.AnswerResult, error) {
	args := m.Called(ctx, attemptID, req, user)
	return args.Get(0).(*services.AnswerResult), args.Error(1)
}

func (m *MockGradingService) GradeBatch(ctx context.Context, attemptID uint, req *services.BatchSubmitRequest, user *models.AuthUser) (*services.BatchGradeResponse, error) {
	args := m.Called(ctx, attemptID, req, user)
	return args.Get(0).(*services.BatchGradeResponse), args.Error(1)
}

type MockAttemptService struct {
	mock.Mock
}

func (m *MockAttemptService) StartAttempt(ctx context.Context, req *services.StartAttemptRequest, user *models.AuthUser) (*models.Attempt, error) {
	args := m.Called(ctx, req, user)
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptService) GetAttempt(ctx context.Context, id uint, user *models.AuthUser) (*models.Attempt, error) {
	args := m.Called(ctx, id, user)
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptService) FinishAttempt(ctx context.Context, id uint, user *models.AuthUser) (*models.Attempt, error) {
	args := m.Called(ctx, id, user)
	return args.Get(0).(*models.Attempt), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportAttemptResults(ctx context.Context, attemptID uint, user *models.AuthUser) ([]byte, error) {
	args := m.Called(ctx, attemptID, user)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExportService) ImportMatchingQuestions(ctx context.Context, reader io.Reader, user *models.AuthUser) (*models.ImportSummary, error) {
	args := m.Called(ctx, reader, user)
	return args.Get(0).(*models.ImportSummary), args.Error(1)
}

type mockServiceManager struct {
	question *MockQuestionService
	grading  *MockGradingService
	attempt  *MockAttemptService
	export   *MockExportService
}

func (m *mockServiceManager) Question() services.QuestionService { return m.question }
func (m *mockServiceManager) Grading() services.GradingService   { return m.grading }
func (m *mockServiceManager) Attempt() services.AttemptService   { return m.attempt }
func (m *mockServiceManager) Export() services.ExportService     { return m.export }

func (m *mockServiceManager) AssertExpectations(t mock.TestingT) {
	m.question.AssertExpectations(t)
	m.grading.AssertExpectations(t)
	m.attempt.AssertExpectations(t)
	m.export.AssertExpectations(t)
}

// tokenVerifier accepts the tokens listed in users.
type tokenVerifier map[string]*models.AuthUser

func (v tokenVerifier) Verify(token string) (*models.AuthUser, error) {
	if user, ok := v[token]; ok {
		return user, nil
	}
	return nil, auth.ErrInvalidToken
}

var (
	teacher = &models.AuthUser{ID: "teacher-1", Role: models.RoleTeacher, Verified: true}
	student = &models.AuthUser{ID: "student-1", Role: models.RoleStudent}

	testTokens = tokenVerifier{
		"teacher-token": teacher,
		"student-token": student,
	}

	errBoom = errors.New("boom")
)

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
