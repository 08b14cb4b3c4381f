package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type ClassHandler struct {
	BaseHandler
	classService services.ClassService
	validator    *validator.Validator
}

func NewClassHandler(
	classService services.ClassService,
	validator *validator.Validator,
	logger utils.Logger,
) *ClassHandler {
	return &ClassHandler{
		BaseHandler:  NewBaseHandler(logger),
		classService: classService,
		validator:    validator,
	}
}

// CreateClass creates a new class with an optional initial roster
// @Summary Create class
// @Tags classes
// @Accept json
// @Produce json
// @Param class body services.CreateClassRequest true "Class data"
// @Success 201 {object} models.Class
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /classes [post]
func (h *ClassHandler) CreateClass(c *gin.Context) {
	h.LogRequest(c, "Creating class")

	var req services.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	class, err := h.classService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

// GetClass retrieves a class by ID
// @Summary Get class
// @Tags classes
// @Produce json
// @Param id path uint true "Class ID"
// @Success 200 {object} models.Class
// @Failure 404 {object} ErrorResponse
// @Router /classes/{id} [get]
func (h *ClassHandler) GetClass(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	class, err := h.classService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// DeleteClass deletes a class, detaching its students
// @Summary Delete class
// @Tags classes
// @Produce json
// @Param id path uint true "Class ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /classes/{id} [delete]
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting class", "class_id", id)

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.classService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Class deleted successfully",
	})
}

// GetMyClasses lists the caller's classes
// @Summary List own classes
// @Tags classes
// @Produce json
// @Success 200 {array} models.Class
// @Router /classes [get]
func (h *ClassHandler) GetMyClasses(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	classes, err := h.classService.GetByTeacher(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// GetClassStudents lists the students of a class
// @Summary List class students
// @Tags classes
// @Produce json
// @Param id path uint true "Class ID"
// @Success 200 {array} models.User
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /classes/{id}/students [get]
func (h *ClassHandler) GetClassStudents(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	students, err := h.classService.GetStudents(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// AddStudents assigns students to a class
// @Summary Add students to class
// @Tags classes
// @Accept json
// @Produce json
// @Param id path uint true "Class ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /classes/{id}/students [post]
func (h *ClassHandler) AddStudents(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Adding students to class", "class_id", id)

	var req struct {
		StudentIDs []string `json:"student_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.classService.AddStudents(c.Request.Context(), id, req.StudentIDs, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Students added successfully",
	})
}
