package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ClassPostgreSQL implements the ClassRepository interface
type ClassPostgreSQL struct {
	db *gorm.DB
}

func NewClassPostgreSQL(db *gorm.DB) repositories.ClassRepository {
	return &ClassPostgreSQL{db: db}
}

func (c *ClassPostgreSQL) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Create(class).Error; err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

func (c *ClassPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error) {
	db := c.getDB(tx)
	var class models.Class
	if err := db.WithContext(ctx).First(&class, id).Error; err != nil {
		return nil, err
	}

	// Student count is derived, not stored
	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Where("class_id = ?", id).
		Count(&class.StudentCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count class students: %w", err)
	}

	return &class, nil
}

func (c *ClassPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Class{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	return nil
}

func (c *ClassPostgreSQL) GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Class, error) {
	db := c.getDB(tx)
	var classes []*models.Class
	if err := db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("failed to get classes by teacher: %w", err)
	}
	return classes, nil
}

func (c *ClassPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := c.getDB(tx)
	var classes []models.Class
	if err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("failed to get classes by ids: %w", err)
	}
	return classes, nil
}

func (c *ClassPostgreSQL) GetStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error) {
	db := c.getDB(tx)
	var students []*models.User
	if err := db.WithContext(ctx).
		Where("class_id = ? AND role = ?", classID, models.RoleStudent).
		Order("full_name ASC").
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to get class students: %w", err)
	}
	return students, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *ClassPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}
