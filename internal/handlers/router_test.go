package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter() (*gin.Engine, *mockServiceManager) {
	gin.SetMode(gin.TestMode)

	sm := &mockServiceManager{
		question: &MockQuestionService{},
		grading:  &MockGradingService{},
		attempt:  &MockAttemptService{},
		export:   &MockExportService{},
	}
	router := gin.New()
	NewHandlerManager(sm, validator.New(), testLogger(), testTokens).SetupRoutes(router)
	return router, sm
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter()

	w := doRequest(router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAuthentication(t *testing.T) {
	router, _ := setupRouter()

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/api/v1/attempts/1", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodGet, "/api/v1/attempts/1", "forged", nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodPost, "/api/v1/questions/matching", "student-token", "{}").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodPost, "/api/v1/grading/calculate-score", "student-token", "{}").Code)
}

func TestCreateMatchingQuestion(t *testing.T) {
	body := map[string]interface{}{
		"text":   "Match capitals",
		"points": 4,
		"content": map[string]interface{}{
			"left_items":    []map[string]string{{"id": "L0", "text": "Paris"}, {"id": "L1", "text": "Tokyo"}},
			"right_items":   []map[string]string{{"id": "R0", "text": "France"}, {"id": "R1", "text": "Japan"}},
			"correct_pairs": []map[string]string{{"left_id": "L0", "right_id": "R0"}, {"left_id": "L1", "right_id": "R1"}},
		},
	}

	t.Run("created", func(t *testing.T) {
		router, sm := setupRouter()
		sm.question.On("CreateMatchingQuestion", mock.Anything, mock.MatchedBy(func(req *services.CreateMatchingQuestionRequest) bool {
			return req.Text == "Match capitals" && len(req.Content.CorrectPairs) == 2
		}), teacher).Return(&models.Question{ID: 9, Type: models.Matching, Text: "Match capitals", Points: 4}, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/questions/matching", "teacher-token", body)

		require.Equal(t, http.StatusCreated, w.Code)
		var question models.Question
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
		assert.Equal(t, uint(9), question.ID)
		assert.NotContains(t, w.Body.String(), "correct_answer")
		sm.AssertExpectations(t)
	})

	t.Run("malformed json", func(t *testing.T) {
		router, _ := setupRouter()
		w := doRequest(router, http.MethodPost, "/api/v1/questions/matching", "teacher-token", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("struct validation", func(t *testing.T) {
		router, _ := setupRouter()
		w := doRequest(router, http.MethodPost, "/api/v1/questions/matching", "teacher-token", map[string]interface{}{"points": 500})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation failed", decodeError(t, w).Message)
	})

	t.Run("content validation from service", func(t *testing.T) {
		router, sm := setupRouter()
		sm.question.On("CreateMatchingQuestion", mock.Anything, mock.Anything, teacher).
			Return((*models.Question)(nil), services.ValidationErrors{{Field: "correct_pairs", Message: "every left item needs a correct pair"}})

		w := doRequest(router, http.MethodPost, "/api/v1/questions/matching", "teacher-token", body)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "correct_pairs")
	})
}

func TestUpdateMatchingQuestion_Locked(t *testing.T) {
	router, sm := setupRouter()
	sm.question.On("UpdateMatchingQuestion", mock.Anything, uint(9), mock.Anything, teacher).
		Return((*models.Question)(nil), services.ErrQuestionLocked)

	w := doRequest(router, http.MethodPut, "/api/v1/questions/9/matching", "teacher-token", map[string]interface{}{"points": 5})

	assert.Equal(t, http.StatusConflict, w.Code)
	sm.AssertExpectations(t)
}

func TestGetQuestion_InvalidID(t *testing.T) {
	router, _ := setupRouter()

	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/v1/questions/abc", "teacher-token", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/v1/questions/0", "teacher-token", nil).Code)
}

func TestPresentQuestion(t *testing.T) {
	router, sm := setupRouter()
	sm.question.On("PresentQuestion", mock.Anything, uint(3)).
		Return(&models.PresentedQuestion{ID: 3, Type: models.Matching, Text: "Match"}, nil)
	sm.question.On("PresentQuestion", mock.Anything, uint(4)).
		Return((*models.PresentedQuestion)(nil), services.ErrQuestionNotFound)

	w := doRequest(router, http.MethodGet, "/api/v1/questions/3/present", "student-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/questions/4/present", "student-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	sm.AssertExpectations(t)
}

func TestSampleQuestions(t *testing.T) {
	router, sm := setupRouter()
	sm.question.On("SampleQuestions", mock.Anything, mock.MatchedBy(func(req *services.SampleQuestionsRequest) bool {
		return req.Count == 10 &&
			len(req.Types) == 2 && req.Types[0] == models.Matching && req.Types[1] == models.Essay &&
			req.Difficulty != nil && *req.Difficulty == models.DifficultyHard
	})).Return([]*models.PresentedQuestion{{ID: 1}, {ID: 2}}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/questions/sample?types=matching&types=essay&difficulty=Hard", "student-token", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var questions []models.PresentedQuestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &questions))
	assert.Len(t, questions, 2)
	sm.AssertExpectations(t)
}

func TestImportQuestions(t *testing.T) {
	router, sm := setupRouter()
	sm.export.On("ImportMatchingQuestions", mock.Anything, mock.Anything, teacher).
		Return(&models.ImportSummary{TotalRows: 2, SuccessCount: 2, CreatedQuestions: []uint{1, 2}}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "questions.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("workbook"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer teacher-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_count":2`)
	sm.AssertExpectations(t)

	w = doRequest(router, http.MethodPost, "/api/v1/questions/import", "teacher-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateScore(t *testing.T) {
	router, sm := setupRouter()
	sm.grading.On("CalculateScore", mock.Anything, mock.Anything).
		Return(&services.AnswerResult{IsCorrect: true, Points: 4, MaxPoints: 4, Canonical: "0:0|1:1", Reason: models.ReasonCorrect}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/grading/calculate-score", "teacher-token",
		`{"points":4,"content":{},"answer":{"L0":"R0","L1":"R1"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var result services.AnswerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.IsCorrect)
	assert.Equal(t, "0:0|1:1", result.Canonical)
}

func TestSubmitAnswer(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"graded", nil, http.StatusCreated},
		{"already answered", services.ErrAnswerAlreadySubmitted, http.StatusConflict},
		{"attempt submitted", services.ErrAttemptAlreadySubmitted, http.StatusConflict},
		{"not a matching question", services.ErrGradingNotAllowed, http.StatusUnprocessableEntity},
		{"other student", services.NewPermissionError("student-1", 5, "attempt", "answer", "not the attempt owner"), http.StatusForbidden},
		{"attempt missing", services.ErrAttemptNotFound, http.StatusNotFound},
		{"storage failure", errBoom, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, sm := setupRouter()
			var result *services.AnswerResult
			if tc.err == nil {
				result = &services.AnswerResult{QuestionID: 1, Points: 4, MaxPoints: 4, Reason: models.ReasonCorrect}
			}
			sm.grading.On("SubmitAnswer", mock.Anything, uint(5), mock.MatchedBy(func(req *services.SubmitAnswerRequest) bool {
				return req.QuestionID == 1 && string(req.Answer) == `{"pairs":[{"left_id":"L0","right_id":"R0"}]}`
			}), student).Return(result, tc.err)

			w := doRequest(router, http.MethodPost, "/api/v1/attempts/5/answers", "student-token",
				`{"question_id":1,"answer":{"pairs":[{"left_id":"L0","right_id":"R0"}]}}`)

			assert.Equal(t, tc.status, w.Code)
			sm.AssertExpectations(t)
		})
	}
}

func TestSubmitAnswer_MissingQuestionID(t *testing.T) {
	router, _ := setupRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/attempts/5/answers", "student-token", `{"answer":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAnswer_RuleViolationDetails(t *testing.T) {
	router, sm := setupRouter()
	rule := services.NewBusinessRuleError("auto_gradable_type", "essay questions are not graded automatically",
		map[string]interface{}{"question_type": "essay"})
	sm.grading.On("SubmitAnswer", mock.Anything, uint(5), mock.Anything, student).
		Return((*services.AnswerResult)(nil), rule)

	w := doRequest(router, http.MethodPost, "/api/v1/attempts/5/answers", "student-token", `{"question_id":1,"answer":{}}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "essay questions are not graded automatically", resp.Message)
	details, ok := resp.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "auto_gradable_type", details["rule"])
}

func TestHandlersLogThroughRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	scoped := utils.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	sm := &mockServiceManager{attempt: &MockAttemptService{}}
	sm.attempt.On("GetAttempt", mock.Anything, uint(9), student).Return((*models.Attempt)(nil), services.ErrAttemptNotFound)

	router := gin.New()
	router.Use(utils.ContextLogger(scoped))
	NewHandlerManager(sm, validator.New(), testLogger(), testTokens).SetupRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts/9", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	req.Header.Set(utils.RequestIDHeader, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), `"user_id":"student-1"`)
}

func TestSubmitBatch(t *testing.T) {
	router, sm := setupRouter()
	sm.grading.On("GradeBatch", mock.Anything, uint(5), mock.MatchedBy(func(req *services.BatchSubmitRequest) bool {
		return len(req.Answers) == 2
	}), student).Return(&services.BatchGradeResponse{AttemptID: 5, Score: 4, MaxScore: 8}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/attempts/5/answers/batch", "student-token",
		`{"answers":[{"question_id":1,"answer":{}},{"question_id":2,"answer":[]}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"score":4`)

	w = doRequest(router, http.MethodPost, "/api/v1/attempts/5/answers/batch", "student-token", `{"answers":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	sm.AssertExpectations(t)
}

func TestAttemptLifecycle(t *testing.T) {
	router, sm := setupRouter()
	sm.attempt.On("StartAttempt", mock.Anything, &services.StartAttemptRequest{}, student).
		Return(&models.Attempt{ID: 5, StudentID: student.ID, Status: models.AttemptInProgress}, nil)
	sm.attempt.On("FinishAttempt", mock.Anything, uint(5), student).
		Return(&models.Attempt{ID: 5, StudentID: student.ID, Status: models.AttemptSubmitted, Score: 4}, nil).Once()
	sm.attempt.On("FinishAttempt", mock.Anything, uint(5), student).
		Return((*models.Attempt)(nil), services.ErrAttemptAlreadySubmitted).Once()

	w := doRequest(router, http.MethodPost, "/api/v1/attempts", "student-token", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/attempts/5/finish", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Attempt submitted", resp.Message)

	w = doRequest(router, http.MethodPost, "/api/v1/attempts/5/finish", "student-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	sm.AssertExpectations(t)
}

func TestAttemptWritesAreStudentOnly(t *testing.T) {
	router, sm := setupRouter()

	for _, path := range []string{"/api/v1/attempts", "/api/v1/attempts/5/finish", "/api/v1/attempts/5/answers"} {
		w := doRequest(router, http.MethodPost, path, "teacher-token", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	sm.attempt.AssertNotCalled(t, "StartAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportResults(t *testing.T) {
	router, sm := setupRouter()
	sm.export.On("ExportAttemptResults", mock.Anything, uint(5), teacher).Return([]byte("xlsx"), nil)

	w := doRequest(router, http.MethodGet, "/api/v1/attempts/5/export", "teacher-token", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attempt_5_results.xlsx")
	assert.Equal(t, "xlsx", w.Body.String())
}
