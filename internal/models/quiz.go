package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionStatus is the per-student status label for a visible quiz.
type SubmissionStatus string

const (
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionLate       SubmissionStatus = "late"
	SubmissionPending    SubmissionStatus = "pending"
)

type Quiz struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:255" validate:"required"`
	Description *string `json:"description" gorm:"type:text"`

	// Timing
	DurationMinutes int       `json:"duration_minutes" gorm:"not null" validate:"min=1,max=180"`
	OpenAt          time.Time `json:"open_at" gorm:"not null;index"`
	CloseAt         time.Time `json:"close_at" gorm:"not null;index"`

	// Presentation settings stored as JSONB
	Settings datatypes.JSON `json:"settings" gorm:"type:jsonb"`

	// Ownership
	CreatedBy string `json:"created_by" gorm:"not null;index;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Creator     User         `json:"creator" gorm:"foreignKey:CreatedBy"`
	Classes     []Class      `json:"classes,omitempty" gorm:"many2many:quiz_classes"`
	Questions   []Question   `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Submissions []Submission `json:"submissions,omitempty" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizSettings is the schema of the Settings JSONB blob.
type QuizSettings struct {
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
	ShowScore        bool `json:"show_score"`
}

// IsOpen reports whether the quiz window has opened.
func (q *Quiz) IsOpen(now time.Time) bool {
	return !now.Before(q.OpenAt)
}

// IsClosed reports whether the quiz window has passed.
func (q *Quiz) IsClosed(now time.Time) bool {
	return now.After(q.CloseAt)
}

// InWindow reports whether now falls inside [OpenAt, CloseAt].
func (q *Quiz) InWindow(now time.Time) bool {
	return q.IsOpen(now) && !q.IsClosed(now)
}
