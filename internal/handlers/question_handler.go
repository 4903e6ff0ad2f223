package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const (
	defaultSampleCount = 10
	maxImportFileSize  = 10 << 20
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	exportService   services.ExportService
	validator       *validator.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		exportService:   exportService,
		validator:       validator,
	}
}

// CreateMatchingQuestion creates a matching question and stores its answer key
// @Summary Create matching question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateMatchingQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /questions/matching [post]
func (h *QuestionHandler) CreateMatchingQuestion(c *gin.Context) {
	h.LogRequest(c, "Creating matching question")

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.CreateMatchingQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	question, err := h.questionService.CreateMatchingQuestion(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestion returns a question for its authors
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetQuestion(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateMatchingQuestion edits a matching question that has no answers yet
// @Summary Update matching question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateMatchingQuestionRequest true "Fields to change"
// @Success 200 {object} models.Question
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id}/matching [put]
func (h *QuestionHandler) UpdateMatchingQuestion(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating matching question", "question_id", id)

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateMatchingQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.UpdateMatchingQuestion(c.Request.Context(), id, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// PresentQuestion returns the student view of a question
// @Summary Present question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.PresentedQuestion
// @Router /questions/{id}/present [get]
func (h *QuestionHandler) PresentQuestion(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	presented, err := h.questionService.PresentQuestion(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, presented)
}

// SampleQuestions draws random questions ordered by question type
// @Summary Sample questions
// @Tags questions
// @Produce json
// @Param count query int false "Number of questions" default(10)
// @Param types query []string false "Question types in serving order"
// @Param difficulty query string false "Difficulty"
// @Success 200 {array} models.PresentedQuestion
// @Router /questions/sample [get]
func (h *QuestionHandler) SampleQuestions(c *gin.Context) {
	var req services.SampleQuestionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = defaultSampleCount
	}

	questions, err := h.questionService.SampleQuestions(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ImportQuestions creates matching questions from an uploaded xlsx file
// @Summary Import matching questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx file"
// @Success 200 {object} SuccessResponse{data=models.ImportSummary}
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "File is required", err)
		return
	}
	if header.Size > maxImportFileSize {
		h.RespondWithError(c, http.StatusBadRequest, "File is too large", nil, header.Size)
		return
	}

	h.LogRequest(c, "Importing matching questions", "filename", header.Filename, "size", header.Size)

	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unable to read file", err)
		return
	}
	defer file.Close()

	summary, err := h.exportService.ImportMatchingQuestions(c.Request.Context(), file, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Import completed", summary,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount)
}
