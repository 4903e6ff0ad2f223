package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SAP-F-2025/olympiad-service/internal/cache"
	"github.com/SAP-F-2025/olympiad-service/internal/events"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestGradingService(repo *MockRepository) (*gradingService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(testLogger())
	store := NewQuestionLoader(repo.Question(), cache.NewNoopCache(), time.Minute, testLogger())
	svc := NewGradingService(repo, store, publisher, validator.New(), testLogger()).(*gradingService)
	return svc, publisher
}

func activeAttempt() *models.Attempt {
	return &models.Attempt{ID: 5, StudentID: testStudent.ID, Status: models.AttemptInProgress}
}

func TestGradingService_CalculateScore(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestGradingService(repo)

	tests := []struct {
		name      string
		answer    string
		correct   bool
		points    int
		canonical string
		reason    models.GradingReason
	}{
		{"correct in any order", `{"L1":"R1","L0":"R0"}`, true, 4, "0:0|1:1", models.ReasonCorrect},
		{"pair list", `[{"left":"L0","right":"R0"},{"left":"L1","right":"R1"}]`, true, 4, "0:0|1:1", models.ReasonCorrect},
		{"swapped", `{"L0":"R1","L1":"R0"}`, false, 0, "0:1|1:0", models.ReasonWrong},
		{"partial", `{"L0":"R0"}`, false, 0, "0:0|1:-", models.ReasonWrong},
		{"empty", ``, false, 0, "0:-|1:-", models.ReasonWrong},
		{"not an object or array", `"R0"`, false, 0, "", models.ReasonMalformedSubmission},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.CalculateScore(context.Background(), &CalculateScoreRequest{
				Points:  4,
				Content: capitalsContent(),
				Answer:  json.RawMessage(tc.answer),
			})
			require.NoError(t, err)

			assert.Equal(t, tc.correct, result.IsCorrect)
			assert.Equal(t, tc.points, result.Points)
			assert.Equal(t, 4, result.MaxPoints)
			assert.Equal(t, tc.canonical, result.Canonical)
			assert.Equal(t, tc.reason, result.Reason)
		})
	}

	t.Run("invalid content", func(t *testing.T) {
		content := capitalsContent()
		content.RightItems = content.RightItems[:1]

		_, err := svc.CalculateScore(context.Background(), &CalculateScoreRequest{Points: 4, Content: content})
		assert.True(t, IsValidation(err))
	})
}

func TestGradingService_CalculateScore_ShuffledRightNeedsIDs(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestGradingService(repo)
	content := capitalsContent()
	content.ShuffleRight = true

	byPosition, err := svc.CalculateScore(context.Background(), &CalculateScoreRequest{
		Points: 4, Content: content, Answer: json.RawMessage(`{"L0":0,"L1":1}`),
	})
	require.NoError(t, err)
	assert.False(t, byPosition.IsCorrect)
	assert.Equal(t, "0:-|1:-", byPosition.Canonical)

	byID, err := svc.CalculateScore(context.Background(), &CalculateScoreRequest{
		Points: 4, Content: content, Answer: json.RawMessage(`{"L0":"R0","L1":"R1"}`),
	})
	require.NoError(t, err)
	assert.True(t, byID.IsCorrect)
	assert.Equal(t, 4, byID.Points)
}

func TestGradingService_SubmitAnswer(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestGradingService(repo)

	repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
	repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(false, nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(1)).Return(capitalsQuestion(t, 1), nil)
	repo.answerRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.StudentAnswer) bool {
		return a.AttemptID == 5 && a.QuestionID == 1 &&
			a.Canonical == "0:0|1:1" && a.IsCorrect && a.Points == 4 &&
			a.Reason == models.ReasonCorrect
	})).Return(nil)
	repo.attemptRepo.On("AddScore", mock.Anything, uint(5), 4, 4).Return(nil)

	result, err := svc.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
		QuestionID: 1,
		Answer:     json.RawMessage(`{"pairs":[{"left_id":"L1","right_id":"R1"},{"left_id":"L0","right_id":"R0"}]}`),
	}, testStudent)

	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 2, result.Answered)
	assert.Len(t, result.Breakdown, 2)
	repo.AssertExpectations(t)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventAnswerGraded, published[0].Type)
	data := published[0].Data.(events.AnswerGradedEvent)
	assert.Equal(t, 4, data.Points)
	assert.Equal(t, testStudent.ID, data.StudentID)
}

func TestGradingService_SubmitAnswer_MalformedScoresZero(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestGradingService(repo)

	repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
	repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(false, nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(1)).Return(capitalsQuestion(t, 1), nil)
	repo.answerRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.StudentAnswer) bool {
		return a.Points == 0 && a.Reason == models.ReasonMalformedSubmission && json.Valid(a.AnswerData)
	})).Return(nil)
	repo.attemptRepo.On("AddScore", mock.Anything, uint(5), 0, 4).Return(nil)

	result, err := svc.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
		QuestionID: 1,
		Answer:     json.RawMessage(`true`),
	}, testStudent)

	require.NoError(t, err)
	assert.Equal(t, models.ReasonMalformedSubmission, result.Reason)
	assert.Zero(t, result.Points)
	repo.AssertExpectations(t)
}

func TestGradingService_SubmitAnswer_Rejected(t *testing.T) {
	answer := &SubmitAnswerRequest{QuestionID: 1, Answer: json.RawMessage(`{}`)}

	t.Run("already answered", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
		repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(true, nil)

		_, err := svc.SubmitAnswer(context.Background(), 5, answer, testStudent)
		assert.ErrorIs(t, err, ErrAnswerAlreadySubmitted)
	})

	t.Run("concurrent duplicate", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
		repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(false, nil)
		repo.questionRepo.On("GetByID", mock.Anything, uint(1)).Return(capitalsQuestion(t, 1), nil)
		repo.answerRepo.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := svc.SubmitAnswer(context.Background(), 5, answer, testStudent)
		assert.ErrorIs(t, err, ErrAnswerAlreadySubmitted)
		assert.Empty(t, publisher.GetPublishedEvents())
	})

	t.Run("someone else's attempt", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)

		other := &models.AuthUser{ID: "student-2", Role: models.RoleStudent}
		_, err := svc.SubmitAnswer(context.Background(), 5, answer, other)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("submitted attempt", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		attempt := activeAttempt()
		attempt.Status = models.AttemptSubmitted
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(attempt, nil)

		_, err := svc.SubmitAnswer(context.Background(), 5, answer, testStudent)
		assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	})

	t.Run("not a matching question", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
		repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(false, nil)
		repo.questionRepo.On("GetByID", mock.Anything, uint(1)).
			Return(&models.Question{ID: 1, Type: models.Essay, Points: 5}, nil)

		_, err := svc.SubmitAnswer(context.Background(), 5, answer, testStudent)
		assert.ErrorIs(t, err, ErrGradingNotAllowed)
		var bre *BusinessRuleError
		require.ErrorAs(t, err, &bre)
		assert.Equal(t, "auto_gradable_type", bre.Rule)
		assert.Equal(t, models.Essay, bre.Context["question_type"])
	})

	t.Run("missing attempt", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return((*models.Attempt)(nil), repositories.ErrNotFound)

		_, err := svc.SubmitAnswer(context.Background(), 5, answer, testStudent)
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})
}

func TestGradingService_SubmitAnswer_AttemptClosedMidway(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestGradingService(repo)

	// the attempt was still open when read but finished before the score landed
	repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
	repo.answerRepo.On("ExistsForAttemptQuestion", mock.Anything, uint(5), uint(1)).Return(false, nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(1)).Return(capitalsQuestion(t, 1), nil)
	repo.answerRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.attemptRepo.On("AddScore", mock.Anything, uint(5), 4, 4).Return(repositories.ErrAttemptClosed)

	_, err := svc.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
		QuestionID: 1,
		Answer:     json.RawMessage(`{"L0":"R0","L1":"R1"}`),
	}, testStudent)

	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	assert.True(t, IsConflict(err))
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestGradingService_GradeBatch(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestGradingService(repo)

	repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
	repo.answerRepo.On("GetByAttempt", mock.Anything, uint(5)).Return([]*models.StudentAnswer{}, nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(1)).Return(capitalsQuestion(t, 1), nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(2)).Return(capitalsQuestion(t, 2), nil)
	repo.questionRepo.On("GetByID", mock.Anything, uint(3)).Return((*models.Question)(nil), repositories.ErrNotFound)
	repo.answerRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Times(3)
	repo.attemptRepo.On("AddScore", mock.Anything, uint(5), 4, 8).Return(nil)

	resp, err := svc.GradeBatch(context.Background(), 5, &BatchSubmitRequest{Answers: []SubmitAnswerRequest{
		{QuestionID: 1, Answer: json.RawMessage(`{"L1":"R1","L0":"R0"}`)},
		{QuestionID: 2, Answer: json.RawMessage(`42`)},
		{QuestionID: 3, Answer: json.RawMessage(`{"L0":"R0"}`)},
	}}, testStudent)

	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 4, resp.Score)
	assert.Equal(t, 8, resp.MaxScore)

	assert.Equal(t, uint(1), resp.Results[0].QuestionID)
	assert.Equal(t, models.ReasonMalformedSubmission, resp.Results[1].Reason)
	assert.Equal(t, models.ReasonUngradable, resp.Results[2].Reason)
	repo.AssertExpectations(t)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	data := published[0].Data.(events.AttemptGradedEvent)
	assert.Equal(t, events.EventAttemptGraded, published[0].Type)
	assert.Equal(t, 1, data.CorrectCount)
	assert.Equal(t, []uint{2, 3}, data.MalformedIDs)
}

func TestGradingService_GradeBatch_Rejected(t *testing.T) {
	t.Run("same question twice", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)

		_, err := svc.GradeBatch(context.Background(), 5, &BatchSubmitRequest{Answers: []SubmitAnswerRequest{
			{QuestionID: 1}, {QuestionID: 1},
		}}, testStudent)
		assert.True(t, IsValidation(err))
	})

	t.Run("question already answered", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestGradingService(repo)
		repo.attemptRepo.On("GetByID", mock.Anything, uint(5)).Return(activeAttempt(), nil)
		repo.answerRepo.On("GetByAttempt", mock.Anything, uint(5)).
			Return([]*models.StudentAnswer{{AttemptID: 5, QuestionID: 2}}, nil)

		_, err := svc.GradeBatch(context.Background(), 5, &BatchSubmitRequest{Answers: []SubmitAnswerRequest{
			{QuestionID: 1}, {QuestionID: 2},
		}}, testStudent)
		assert.ErrorIs(t, err, ErrAnswerAlreadySubmitted)
		repo.answerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
