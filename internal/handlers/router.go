package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/olympiad-service/internal/auth"
	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/services"
	"github.com/SAP-F-2025/olympiad-service/internal/utils"
	"github.com/SAP-F-2025/olympiad-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	questionHandler *QuestionHandler
	gradingHandler  *GradingHandler
	attemptHandler  *AttemptHandler
	verifier        auth.TokenVerifier
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	verifier auth.TokenVerifier,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.Export(), validator, logger),
		gradingHandler:  NewGradingHandler(serviceManager.Grading(), validator, logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), serviceManager.Export(), validator, logger),
		verifier:        verifier,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1", auth.RequireAuth(hm.verifier))
	{
		questions := v1.Group("/questions")
		{
			questions.GET("/sample", hm.questionHandler.SampleQuestions)
			questions.GET("/:id/present", hm.questionHandler.PresentQuestion)

			authoring := questions.Group("", auth.RequireAuthor())
			authoring.POST("/matching", hm.questionHandler.CreateMatchingQuestion)
			authoring.POST("/import", hm.questionHandler.ImportQuestions)
			authoring.GET("/:id", hm.questionHandler.GetQuestion)
			authoring.PUT("/:id/matching", hm.questionHandler.UpdateMatchingQuestion)
		}

		grading := v1.Group("/grading", auth.RequireAuthor())
		{
			grading.POST("/calculate-score", hm.gradingHandler.CalculateScore)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/export", hm.attemptHandler.ExportResults)

			// only the student sitting the attempt writes to it
			sitting := attempts.Group("", auth.RequireRole(models.RoleStudent))
			sitting.POST("", hm.attemptHandler.StartAttempt)
			sitting.POST("/:id/finish", hm.attemptHandler.FinishAttempt)
			sitting.POST("/:id/answers", hm.gradingHandler.SubmitAnswer)
			sitting.POST("/:id/answers/batch", hm.gradingHandler.SubmitBatch)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "olympiad-service",
	})
}
