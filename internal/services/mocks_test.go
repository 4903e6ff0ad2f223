package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Question), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuestionRepository) GetRandom(ctx context.Context, filters repositories.RandomQuestionFilters) ([]*models.Question, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) HasAnswers(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) MarkSubmitted(ctx context.Context, id uint, submittedAt time.Time) error {
	args := m.Called(ctx, id, submittedAt)
	return args.Error(0)
}

func (m *MockAttemptRepository) AddScore(ctx context.Context, id uint, points, maxPoints int) error {
	args := m.Called(ctx, id, points, maxPoints)
	return args.Error(0)
}

// MockAnswerRepository is a mock implementation of AnswerRepository
type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) Create(ctx context.Context, answer *models.StudentAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.StudentAnswer, error) {
	args := m.Called(ctx, attemptID)
	return args.Get(0).([]*models.StudentAnswer), args.Error(1)
}

func (m *MockAnswerRepository) ExistsForAttemptQuestion(ctx context.Context, attemptID, questionID uint) (bool, error) {
	args := m.Called(ctx, attemptID, questionID)
	return args.Bool(0), args.Error(1)
}

// MockRepository runs transactions against the same mocks.
type MockRepository struct {
	questionRepo *MockQuestionRepository
	attemptRepo  *MockAttemptRepository
	answerRepo   *MockAnswerRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		questionRepo: &MockQuestionRepository{},
		attemptRepo:  &MockAttemptRepository{},
		answerRepo:   &MockAnswerRepository{},
	}
}

func (m *MockRepository) Question() repositories.QuestionRepository { return m.questionRepo }
func (m *MockRepository) Attempt() repositories.AttemptRepository   { return m.attemptRepo }
func (m *MockRepository) Answer() repositories.AnswerRepository     { return m.answerRepo }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) AssertExpectations(t mock.TestingT) {
	m.questionRepo.AssertExpectations(t)
	m.attemptRepo.AssertExpectations(t)
	m.answerRepo.AssertExpectations(t)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testAdmin   = &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin, Verified: true}
	testTeacher = &models.AuthUser{ID: "teacher-1", Role: models.RoleTeacher, Verified: true}
	testPending = &models.AuthUser{ID: "teacher-2", Role: models.RoleTeacher}
	testStudent = &models.AuthUser{ID: "student-1", Role: models.RoleStudent}
)
