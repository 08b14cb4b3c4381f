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

type QuizPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID, quiz.CreatedBy)
	return nil
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var quiz models.Quiz

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := db.WithContext(ctx).First(&dbQuiz, id).Error; err != nil {
			return nil, err
		}
		return &dbQuiz, nil
	})

	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := q.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Classes").
		First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(quiz).Error; err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID, quiz.CreatedBy)
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	quiz, err := q.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Delete(&models.Quiz{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, id, quiz.CreatedBy)
	return nil
}

func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	db := q.getDB(tx)
	var quizzes []*models.Quiz
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Quiz{})
	query = q.helpers.ApplyQuizFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Classes").Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.CreatedBy = &creatorID
	return q.List(ctx, tx, filters)
}

func (q *QuizPostgreSQL) GetOpenForClass(ctx context.Context, tx *gorm.DB, classID uint, now time.Time) ([]*models.Quiz, error) {
	db := q.getDB(tx)
	var quizzes []*models.Quiz
	if err := db.WithContext(ctx).
		Joins("JOIN quiz_classes qc ON qc.quiz_id = quizzes.id").
		Where("qc.class_id = ? AND quizzes.open_at <= ?", classID, now).
		Order("quizzes.close_at ASC").
		Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("failed to get open quizzes for class: %w", err)
	}
	return quizzes, nil
}

func (q *QuizPostgreSQL) IsAssignedToClass(ctx context.Context, tx *gorm.DB, quizID, classID uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Table("quiz_classes").
		Where("quiz_id = ? AND class_id = ?", quizID, classID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check quiz assignment: %w", err)
	}
	return count > 0, nil
}

func (q *QuizPostgreSQL) ReplaceClasses(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, classes []models.Class) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Model(quiz).Association("Classes").Replace(classes); err != nil {
		return fmt.Errorf("failed to replace quiz classes: %w", err)
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID, quiz.CreatedBy)
	return nil
}

func (q *QuizPostgreSQL) GetClassIDs(ctx context.Context, tx *gorm.DB, quizID uint) ([]uint, error) {
	db := q.getDB(tx)
	var classIDs []uint
	if err := db.WithContext(ctx).
		Table("quiz_classes").
		Where("quiz_id = ?", quizID).
		Pluck("class_id", &classIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to get quiz class ids: %w", err)
	}
	return classIDs, nil
}

func (q *QuizPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizStats, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("quiz:%d", quizID)
	var stats repositories.QuizStats

	err := q.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var dbStats repositories.QuizStats

		var total int64
		if err := db.WithContext(ctx).
			Model(&models.Submission{}).
			Where("quiz_id = ?", quizID).
			Count(&total).Error; err != nil {
			return nil, err
		}
		dbStats.TotalSubmissions = int(total)

		var completed int64
		if err := db.WithContext(ctx).
			Model(&models.Submission{}).
			Where("quiz_id = ? AND submitted_at IS NOT NULL", quizID).
			Count(&completed).Error; err != nil {
			return nil, err
		}
		dbStats.CompletedSubmissions = int(completed)

		// Score aggregates, COALESCE to handle no completed submissions
		var agg struct {
			Avg float64
			Max float64
			Min float64
		}
		if err := db.WithContext(ctx).
			Model(&models.Submission{}).
			Where("quiz_id = ? AND submitted_at IS NOT NULL", quizID).
			Select("COALESCE(AVG(score), 0) as avg, COALESCE(MAX(score), 0) as max, COALESCE(MIN(score), 0) as min").
			Scan(&agg).Error; err != nil {
			return nil, err
		}
		dbStats.AverageScore = agg.Avg
		dbStats.HighestScore = agg.Max
		dbStats.LowestScore = agg.Min

		var questionCount int64
		if err := db.WithContext(ctx).
			Model(&models.Question{}).
			Where("quiz_id = ?", quizID).
			Count(&questionCount).Error; err != nil {
			return nil, err
		}
		dbStats.QuestionCount = int(questionCount)

		return &dbStats, nil
	})

	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (q *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
