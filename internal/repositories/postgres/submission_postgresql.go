package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(submission).Error; err != nil {
		// Let duplicate key errors through untranslated so callers can
		// fall back to the winning row.
		return err
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.QuizID, submission.StudentID)
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	db := s.getDB(tx)
	var submission models.Submission
	if err := db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	db := s.getDB(tx)
	var submission models.Submission
	if err := db.WithContext(ctx).
		Preload("Student").
		Preload("Quiz").
		Preload("Answers").
		First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Save(submission).Error; err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.QuizID, submission.StudentID)
	return nil
}

func (s *SubmissionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := s.getDB(tx)
	submission, err := s.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	// Answers cascade via FK constraint
	if err := db.WithContext(ctx).Unscoped().Delete(&models.Submission{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.QuizID, submission.StudentID)
	return nil
}

// GetByQuizAndStudent retrieves the unique submission for a (quiz, student) pair
func (s *SubmissionPostgreSQL) GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Submission, error) {
	db := s.getDB(tx)
	var submission models.Submission
	if err := db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	db := s.getDB(tx)
	var submissions []*models.Submission
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Submission{}).Where("quiz_id = ?", quizID)
	query = s.helpers.ApplySubmissionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Student").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	db := s.getDB(tx)
	var submissions []*models.Submission
	var total int64

	query := db.WithContext(ctx).Model(&models.Submission{}).Where("student_id = ?", studentID)
	query = s.helpers.ApplySubmissionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Quiz").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// Finalize marks a submission as submitted with its score
func (s *SubmissionPostgreSQL) Finalize(ctx context.Context, tx *gorm.DB, id uint, submittedAt time.Time, score float64) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"submitted_at": submittedAt,
			"score":        score,
		}).Error; err != nil {
		return fmt.Errorf("failed to finalize submission: %w", err)
	}
	return nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (s *SubmissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// ===== ANSWER REPOSITORY IMPLEMENTATION =====

// AnswerPostgreSQL implements the AnswerRepository interface
type AnswerPostgreSQL struct {
	db *gorm.DB
}

// NewAnswerPostgreSQL creates a new answer repository instance
func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// CreateBatch creates multiple answers in a batch
func (ar *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	db := ar.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("failed to create answers batch: %w", err)
	}
	return nil
}

// GetBySubmission retrieves all answers for a submission
func (ar *AnswerPostgreSQL) GetBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) ([]*models.Answer, error) {
	db := ar.getDB(tx)
	var answers []*models.Answer
	if err := db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers by submission: %w", err)
	}
	return answers, nil
}

// DeleteBySubmission removes all answers for a submission
func (ar *AnswerPostgreSQL) DeleteBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) error {
	db := ar.getDB(tx)
	if err := db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&models.Answer{}).Error; err != nil {
		return fmt.Errorf("failed to delete answers by submission: %w", err)
	}
	return nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (ar *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}
