package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type QuizSettingsRequest = validator.QuizSettingsRequest
type QuestionRequest = validator.QuestionRequest
type OptionRequest = validator.OptionRequest
type CreateClassRequest = validator.ClassCreateRequest

type QuizResponse struct {
	*models.Quiz
	QuestionCount int  `json:"question_count"`
	CanEdit       bool `json:"can_edit"`
	CanDelete     bool `json:"can_delete"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

// AnswerInput is one submitted (question, option) selection. Pointer
// fields distinguish "absent" from zero so malformed entries can be
// rejected rather than coerced.
type AnswerInput struct {
	QuestionID *uint `json:"questionId" validate:"required"`
	OptionID   *uint `json:"optionId" validate:"required"`
}

type SubmitQuizRequest struct {
	// Answers may be empty or absent, both meaning "no answers".
	Answers []AnswerInput `json:"answers"`
}

// SubmissionResponse carries the attempt state a client needs to drive
// its countdown.
type SubmissionResponse struct {
	*models.Submission
	TimeRemaining int  `json:"time_remaining"` // seconds, clamped at 0
	Resumed       bool `json:"resumed"`
}

type SubmitQuizResponse struct {
	Submission *models.Submission `json:"submission"`
	Score      float64            `json:"score"`
}

// ===== AVAILABILITY RELATED DTOs =====

// StudentQuizView is a quiz as seen by a student: the quiz plus its
// computed status label.
type StudentQuizView struct {
	*models.Quiz
	Status     models.SubmissionStatus `json:"status"`
	Submission *models.Submission      `json:"submission,omitempty"`
}

// ===== RESULT RELATED DTOs =====

type QuizResultEntry struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Score       *float64   `json:"score"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Late        bool       `json:"late"`
}

type QuizResultsResponse struct {
	Quiz    *models.Quiz            `json:"quiz"`
	Stats   *repositories.QuizStats `json:"stats"`
	Results []*QuizResultEntry      `json:"results"`
	Total   int64                   `json:"total"`
}

type StudentResultResponse struct {
	Submission *models.Submission `json:"submission"`
	Answers    []*models.Answer   `json:"answers"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error)
	GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error)

	// Class assignment
	AssignClasses(ctx context.Context, quizID uint, classIDs []uint, userID string) error

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error)

	// Permission checks
	CanEdit(ctx context.Context, quizID uint, userID string) (bool, error)
}

// AvailabilityService decides, from current time and the quiz window
// plus class assignment, whether a quiz is visible or startable for a
// student. Pure reads, no side effects.
type AvailabilityService interface {
	// VisibleQuizzes returns quizzes assigned to the student's class
	// whose window has opened, each with its status label.
	VisibleQuizzes(ctx context.Context, studentID string) ([]*StudentQuizView, error)

	// IsVisible reports whether the student may see the quiz at all.
	IsVisible(ctx context.Context, quiz *models.Quiz, studentID string, now time.Time) (bool, error)

	// CheckStartable returns nil when the student may start the quiz
	// now, ErrQuizNotAssigned when it is outside their class, and
	// ErrQuizNotAvailable when outside the window.
	CheckStartable(ctx context.Context, quiz *models.Quiz, studentID string, now time.Time) error

	// CheckAssigned verifies class assignment only, without any window
	// check. Used by submit, which accepts late submissions.
	CheckAssigned(ctx context.Context, quizID uint, studentID string) error

	// StatusFor computes the status label for a visible quiz.
	StatusFor(quiz *models.Quiz, submission *models.Submission, now time.Time) models.SubmissionStatus
}

type AttemptService interface {
	// Start creates the submission for (quiz, student), or returns the
	// existing in-progress one unchanged.
	Start(ctx context.Context, quizID uint, studentID string) (*SubmissionResponse, error)

	// Submit finalizes the submission exactly once: validates answers,
	// scores them, and persists atomically.
	Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest, studentID string) (*SubmitQuizResponse, error)

	// GetCurrent returns the student's submission for a quiz.
	GetCurrent(ctx context.Context, quizID uint, studentID string) (*SubmissionResponse, error)

	// GetTimeRemaining returns seconds left on the attempt clock.
	GetTimeRemaining(ctx context.Context, quizID uint, studentID string) (int, error)
}

// ScoringService computes a score from an answer key and a validated
// selection set. Pure function of its inputs.
type ScoringService interface {
	Score(questions []*models.Question, answers []models.Answer) float64
}

type ClassService interface {
	Create(ctx context.Context, req *CreateClassRequest, teacherID string) (*models.Class, error)
	GetByID(ctx context.Context, id uint, userID string) (*models.Class, error)
	Delete(ctx context.Context, id uint, userID string) error

	GetByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error)
	GetStudents(ctx context.Context, classID uint, userID string) ([]*models.User, error)
	AddStudents(ctx context.Context, classID uint, studentIDs []string, userID string) error
}

type ResultService interface {
	// GetQuizResults returns per-student results for a quiz, teacher only.
	GetQuizResults(ctx context.Context, quizID uint, filters repositories.SubmissionFilters, userID string) (*QuizResultsResponse, error)

	// GetStudentResult returns one student's finalized submission with answers.
	GetStudentResult(ctx context.Context, quizID uint, studentID string, userID string) (*StudentResultResponse, error)

	// ResetSubmission deletes a student's submission and answers so the
	// quiz can be retaken.
	ResetSubmission(ctx context.Context, quizID uint, studentID string, userID string) error

	// ExportResults renders quiz results as an xlsx workbook.
	ExportResults(ctx context.Context, quizID uint, userID string) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Quiz() QuizService
	Attempt() AttemptService
	Availability() AvailabilityService
	Scoring() ScoringService
	Class() ClassService
	Result() ResultService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
