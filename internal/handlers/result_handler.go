package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// GetQuizResults lists per-student results for a quiz
// @Summary Get quiz results
// @Tags results
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResultsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/results [get]
func (h *ResultHandler) GetQuizResults(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parseSubmissionFilters(c)

	results, err := h.resultService.GetQuizResults(c.Request.Context(), quizID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetStudentResult returns one student's result for a quiz
// @Summary Get student result
// @Tags results
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.StudentResultResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/results/{student_id} [get]
func (h *ResultHandler) GetStudentResult(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id parameter",
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	result, err := h.resultService.GetStudentResult(c.Request.Context(), quizID, studentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResetSubmission deletes a student's submission so the quiz can be retaken
// @Summary Reset submission
// @Tags results
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/results/{student_id} [delete]
func (h *ResultHandler) ResetSubmission(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id parameter",
		})
		return
	}

	h.LogRequest(c, "Resetting submission", "quiz_id", quizID, "student_id", studentID)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.resultService.ResetSubmission(c.Request.Context(), quizID, studentID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Submission reset successfully",
	})
}

// ExportResults downloads quiz results as an xlsx workbook
// @Summary Export quiz results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/results/export [get]
func (h *ResultHandler) ExportResults(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Exporting quiz results", "quiz_id", quizID)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	data, err := h.resultService.ExportResults(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz-%d-results.xlsx", quizID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ===== HELPER METHODS =====

func (h *ResultHandler) parseSubmissionFilters(c *gin.Context) repositories.SubmissionFilters {
	filters := repositories.SubmissionFilters{
		Limit:  50,
		Offset: 0,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filters.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	if submittedStr := c.Query("submitted"); submittedStr != "" {
		if submitted, err := strconv.ParseBool(submittedStr); err == nil {
			filters.Submitted = &submitted
		}
	}

	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		filters.StudentID = &studentID
	}

	if sortBy := strings.TrimSpace(c.Query("sort_by")); sortBy != "" {
		filters.SortBy = sortBy
	}
	if sortOrder := strings.TrimSpace(c.Query("sort_order")); sortOrder != "" {
		filters.SortOrder = sortOrder
	}

	return filters
}
