package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	CreatedBy *string    `json:"created_by"`
	ClassID   *uint      `json:"class_id"`
	OpenFrom  *time.Time `json:"open_from"`
	OpenTo    *time.Time `json:"open_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title", "open_at", "close_at"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	StudentID *string    `json:"student_id"`
	Submitted *bool      `json:"submitted"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizStats struct {
	TotalSubmissions     int     `json:"total_submissions"`
	CompletedSubmissions int     `json:"completed_submissions"`
	AverageScore         float64 `json:"average_score"`
	HighestScore         float64 `json:"highest_score"`
	LowestScore          float64 `json:"lowest_score"`
	QuestionCount        int     `json:"question_count"`
}

// ===== REPOSITORY INTERFACES =====

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters QuizFilters) ([]*models.Quiz, int64, error)

	// GetOpenForClass returns quizzes assigned to a class whose window has
	// opened (open_at <= now), including already-closed ones so late status
	// can be shown.
	GetOpenForClass(ctx context.Context, tx *gorm.DB, classID uint, now time.Time) ([]*models.Quiz, error)

	// IsAssignedToClass reports whether a quiz is assigned to the class.
	IsAssignedToClass(ctx context.Context, tx *gorm.DB, quizID, classID uint) (bool, error)

	// ReplaceClasses re-syncs the quiz-class assignment set.
	ReplaceClasses(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, classes []models.Class) error

	GetClassIDs(ctx context.Context, tx *gorm.DB, quizID uint) ([]uint, error)
	GetStats(ctx context.Context, tx *gorm.DB, quizID uint) (*QuizStats, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)

	// GetByQuiz returns questions ordered by their order field, options
	// preloaded in option order.
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)

	// DeleteExcept removes quiz questions whose IDs are not in keep.
	DeleteExcept(ctx context.Context, tx *gorm.DB, quizID uint, keep []uint) error

	// ExistingQuestionIDs filters ids down to those present in the
	// questions table.
	ExistingQuestionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error)

	CreateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error
	UpdateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error
	DeleteOptionsExcept(ctx context.Context, tx *gorm.DB, questionID uint, keep []uint) error
	ExistingOptionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error)
}

type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// GetByQuizAndStudent returns the unique submission for the pair, or a
	// not-found error.
	GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Submission, error)

	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters SubmissionFilters) ([]*models.Submission, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters SubmissionFilters) ([]*models.Submission, int64, error)

	// Finalize sets submitted_at and score on the row.
	Finalize(ctx context.Context, tx *gorm.DB, id uint, submittedAt time.Time, score float64) error
}

type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error
	GetBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) ([]*models.Answer, error)
	DeleteBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) error
}

type ClassRepository interface {
	Create(ctx context.Context, tx *gorm.DB, class *models.Class) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Class, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Class, error)
	GetStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error)
}

// UserRepository is the local user store. Identity originates from
// Casdoor; rows here carry class membership and are synced on first login.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}
