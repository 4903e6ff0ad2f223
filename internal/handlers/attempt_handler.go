package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		exportService:  exportService,
		validator:      validator,
	}
}

// StartAttempt opens a new attempt for the caller
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest false "Attempt title"
// @Success 201 {object} models.Attempt
// @Router /attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns an attempt with its graded answers
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.Attempt
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// FinishAttempt closes an attempt
// @Summary Finish attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse{data=models.Attempt}
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/finish [post]
func (h *AttemptHandler) FinishAttempt(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.FinishAttempt(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt submitted", attempt,
		"attempt_id", attempt.ID,
		"score", attempt.Score)
}

// ExportResults downloads the graded attempt as an xlsx workbook
// @Summary Export attempt results
// @Tags attempts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Attempt ID"
// @Success 200 {file} file
// @Router /attempts/{id}/export [get]
func (h *AttemptHandler) ExportResults(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportAttemptResults(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attempt_%d_results.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
