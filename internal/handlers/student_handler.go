package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	availability services.AvailabilityService
	results      services.ResultService
}

func NewStudentHandler(availability services.AvailabilityService, results services.ResultService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:  NewBaseHandler(logger),
		availability: availability,
		results:      results,
	}
}

// ===== STUDENT ENDPOINTS =====

// GetStudentQuizzes returns quizzes visible to the current student
// @Summary Get student quizzes
// @Description Lists quizzes assigned to the student's class whose window has opened, each with its status label
// @Tags students
// @Produce json
// @Success 200 {array} services.StudentQuizView
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /students/me/quizzes [get]
func (h *StudentHandler) GetStudentQuizzes(c *gin.Context) {
	h.LogRequest(c, "Getting student quizzes")

	studentID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quizzes, err := h.availability.VisibleQuizzes(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

// GetStudentResult returns the current student's result for a quiz
// @Summary Get own quiz result
// @Tags students
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.StudentResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/me/quizzes/{id}/result [get]
func (h *StudentHandler) GetStudentResult(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	studentID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	result, err := h.results.GetStudentResult(c.Request.Context(), quizID, studentID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
