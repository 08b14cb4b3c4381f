package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question and invalidates cache
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	q.invalidateQuizQuestions(ctx, question.QuizID)
	return nil
}

// Update updates an existing question
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	q.invalidateQuizQuestions(ctx, question.QuizID)
	return nil
}

// Delete removes a question and its options
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)
	question, err := q.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Select("Options").Delete(&models.Question{ID: id}).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	q.invalidateQuizQuestions(ctx, question.QuizID)
	return nil
}

// GetByID retrieves a question with its options
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// ===== QUERY OPERATIONS =====

// GetByQuiz retrieves quiz questions in order, options preloaded, with caching
func (q *QuestionPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("quiz:%d:questions", quizID)
	var questions []*models.Question

	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cacheKey, &questions, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestions []*models.Question
		if err := db.WithContext(ctx).
			Where("quiz_id = ?", quizID).
			Order("order_index ASC").
			Preload("Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("order_index ASC")
			}).
			Find(&dbQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to get questions by quiz: %w", err)
		}
		return dbQuestions, nil
	})

	return questions, err
}

// DeleteExcept removes quiz questions whose IDs are not in keep
func (q *QuestionPostgreSQL) DeleteExcept(ctx context.Context, tx *gorm.DB, quizID uint, keep []uint) error {
	db := q.getDB(tx)
	query := db.WithContext(ctx).Where("quiz_id = ?", quizID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}

	if err := query.Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete removed questions: %w", err)
	}

	q.invalidateQuizQuestions(ctx, quizID)
	return nil
}

// ExistingQuestionIDs filters ids down to those present in the questions table
func (q *QuestionPostgreSQL) ExistingQuestionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error) {
	db := q.getDB(tx)
	existing := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	var found []uint
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to check question ids: %w", err)
	}

	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// ===== OPTION OPERATIONS =====

func (q *QuestionPostgreSQL) CreateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(option).Error; err != nil {
		return fmt.Errorf("failed to create option: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) UpdateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(option).Error; err != nil {
		return fmt.Errorf("failed to update option: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) DeleteOptionsExcept(ctx context.Context, tx *gorm.DB, questionID uint, keep []uint) error {
	db := q.getDB(tx)
	query := db.WithContext(ctx).Where("question_id = ?", questionID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}

	if err := query.Delete(&models.Option{}).Error; err != nil {
		return fmt.Errorf("failed to delete removed options: %w", err)
	}
	return nil
}

// ExistingOptionIDs filters ids down to those present in the options table
func (q *QuestionPostgreSQL) ExistingOptionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error) {
	db := q.getDB(tx)
	existing := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	var found []uint
	if err := db.WithContext(ctx).
		Model(&models.Option{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to check option ids: %w", err)
	}

	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// ===== HELPER METHODS =====

func (q *QuestionPostgreSQL) invalidateQuizQuestions(ctx context.Context, quizID uint) {
	cache.SafeDelete(ctx, q.cacheManager.Quiz,
		fmt.Sprintf("quiz:%d:questions", quizID),
		fmt.Sprintf("details:%d", quizID))
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
