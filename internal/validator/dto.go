package validator

import (
	"time"
)

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	Title           string               `json:"title" validate:"required,quiz_title"`
	Description     *string              `json:"description" validate:"omitempty,quiz_description"`
	DurationMinutes int                  `json:"duration_minutes" validate:"required,quiz_duration"`
	OpenAt          time.Time            `json:"open_at" validate:"required"`
	CloseAt         time.Time            `json:"close_at" validate:"required"`
	ClassIDs        []uint               `json:"class_ids" validate:"required,min=1"`
	Settings        *QuizSettingsRequest `json:"settings"`
	Questions       []QuestionRequest    `json:"questions" validate:"required,min=1"`
}

// QuizUpdateRequest represents the request structure for updating quizzes
type QuizUpdateRequest struct {
	Title           *string              `json:"title" validate:"omitempty,quiz_title"`
	Description     *string              `json:"description" validate:"omitempty,quiz_description"`
	DurationMinutes *int                 `json:"duration_minutes" validate:"omitempty,quiz_duration"`
	OpenAt          *time.Time           `json:"open_at"`
	CloseAt         *time.Time           `json:"close_at"`
	ClassIDs        []uint               `json:"class_ids" validate:"omitempty,min=1"`
	Settings        *QuizSettingsRequest `json:"settings"`
	Questions       []QuestionRequest    `json:"questions" validate:"omitempty,min=1"`
}

// QuizSettingsRequest represents quiz settings
type QuizSettingsRequest struct {
	ShuffleQuestions *bool `json:"shuffle_questions"`
	ShuffleOptions   *bool `json:"shuffle_options"`
	ShowScore        *bool `json:"show_score"`
}

// QuestionRequest represents a question within a quiz payload. ID is set
// on update to modify an existing question in place.
type QuestionRequest struct {
	ID      *uint           `json:"id"`
	Text    string          `json:"text" validate:"required,min=1,max=2000"`
	Order   int             `json:"order" validate:"omitempty,min=0"`
	Options []OptionRequest `json:"options" validate:"required,min=2"`
}

// OptionRequest represents an answer option within a question payload
type OptionRequest struct {
	ID        *uint  `json:"id"`
	Text      string `json:"text" validate:"required,min=1,max=500"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"omitempty,min=0"`
}

// ClassCreateRequest represents the request structure for creating classes
type ClassCreateRequest struct {
	Name       string   `json:"name" validate:"required,min=1,max=200"`
	StudentIDs []string `json:"student_ids"`
}
