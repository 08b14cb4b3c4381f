package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	studentHandler *StudentHandler
	classHandler   *ClassHandler
	resultHandler  *ResultHandler
	userHandler    *UserHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), validator, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		studentHandler: NewStudentHandler(serviceManager.Availability(), serviceManager.Result(), logger),
		classHandler:   NewClassHandler(serviceManager.Class(), validator, logger),
		resultHandler:  NewResultHandler(serviceManager.Result(), logger),
		userHandler:    NewUserHandler(userRepo, logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		teacherOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)
		studentOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent)

		// Quiz authoring routes - Teachers and Admins only
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", teacherOnly, hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", teacherOnly, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", teacherOnly, hm.quizHandler.DeleteQuiz)
			quizzes.PUT("/:id/classes", teacherOnly, hm.quizHandler.AssignClasses)

			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/details", hm.quizHandler.GetQuizWithDetails)
			quizzes.GET("/:id/stats", teacherOnly, hm.quizHandler.GetQuizStats)

			// Attempt routes - Students only
			quizzes.POST("/:id/start", studentOnly, hm.attemptHandler.StartAttempt)
			quizzes.POST("/:id/submit", studentOnly, hm.attemptHandler.SubmitAttempt)
			quizzes.GET("/:id/attempt", studentOnly, hm.attemptHandler.GetCurrentAttempt)
			quizzes.GET("/:id/time-remaining", studentOnly, hm.attemptHandler.GetTimeRemaining)

			// Result routes - Teachers and Admins only
			quizzes.GET("/:id/results", teacherOnly, hm.resultHandler.GetQuizResults)
			quizzes.GET("/:id/results/export", teacherOnly, hm.resultHandler.ExportResults)
			quizzes.GET("/:id/results/:student_id", teacherOnly, hm.resultHandler.GetStudentResult)
			quizzes.DELETE("/:id/results/:student_id", teacherOnly, hm.resultHandler.ResetSubmission)
		}

		// Class roster routes - Teachers and Admins only
		classes := v1.Group("/classes")
		classes.Use(teacherOnly)
		{
			classes.POST("", hm.classHandler.CreateClass)
			classes.GET("", hm.classHandler.GetMyClasses)
			classes.GET("/:id", hm.classHandler.GetClass)
			classes.DELETE("/:id", hm.classHandler.DeleteClass)
			classes.GET("/:id/students", hm.classHandler.GetClassStudents)
			classes.POST("/:id/students", hm.classHandler.AddStudents)
		}

		// Student routes - Students only
		students := v1.Group("/students")
		students.Use(studentOnly)
		{
			students.GET("/me/quizzes", hm.studentHandler.GetStudentQuizzes)
			students.GET("/me/quizzes/:id/result", hm.studentHandler.GetStudentResult)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.GET("/:id", teacherOnly, hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})
}
