package models

import (
	"time"

	"gorm.io/gorm"
)

type Class struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:255" validate:"required"`

	// Ownership
	TeacherID string `json:"teacher_id" gorm:"not null;index;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Teacher  User   `json:"teacher" gorm:"foreignKey:TeacherID"`
	Students []User `json:"students,omitempty" gorm:"foreignKey:ClassID"`
	Quizzes  []Quiz `json:"quizzes,omitempty" gorm:"many2many:quiz_classes"`

	// Statistics (computed)
	StudentCount int64 `json:"student_count" gorm:"-"`
}

func (Class) TableName() string {
	return "classes"
}
