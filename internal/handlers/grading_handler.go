package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// CalculateScore grades an answer against unsaved question content
// @Summary Calculate score
// @Description Previews how an answer would be graded without storing anything
// @Tags grading
// @Accept json
// @Produce json
// @Param request body services.CalculateScoreRequest true "Content, points and answer"
// @Success 200 {object} services.AnswerResult
// @Failure 400 {object} ErrorResponse
// @Router /grading/calculate-score [post]
func (h *GradingHandler) CalculateScore(c *gin.Context) {
	var req services.CalculateScoreRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, err := h.gradingService.CalculateScore(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitAnswer grades and stores one answer of an attempt
// @Summary Submit answer
// @Tags grading
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body services.SubmitAnswerRequest true "Answer"
// @Success 201 {object} services.AnswerResult
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers [post]
func (h *GradingHandler) SubmitAnswer(c *gin.Context) {
	attemptID := ParseUintIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Submitting answer", "attempt_id", attemptID, "question_id", req.QuestionID)

	result, err := h.gradingService.SubmitAnswer(c.Request.Context(), attemptID, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// SubmitBatch grades and stores several answers of an attempt at once
// @Summary Submit answers in batch
// @Tags grading
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answers body services.BatchSubmitRequest true "Answers"
// @Success 201 {object} services.BatchGradeResponse
// @Router /attempts/{id}/answers/batch [post]
func (h *GradingHandler) SubmitBatch(c *gin.Context) {
	attemptID := ParseUintIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.BatchSubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Submitting answer batch", "attempt_id", attemptID, "answers", len(req.Answers))

	resp, err := h.gradingService.GradeBatch(c.Request.Context(), attemptID, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
