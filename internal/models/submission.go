package models

import (
	"time"
)

// Submission is a student's single attempt at a quiz. The
// (quiz_id, student_id) pair is unique at the storage level: a second
// concurrent insert for the same pair fails on the constraint and callers
// converge to the existing row.
type Submission struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QuizID    uint   `json:"quiz_id" gorm:"not null;uniqueIndex:idx_quiz_student"`
	StudentID string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_quiz_student"`

	// Timing. StartedAt is set once at creation; ExpiresAt is the fixed
	// deadline derived from the quiz duration. There is no server-side
	// timer: expiry is recomputed on every read.
	StartedAt time.Time `json:"started_at" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`

	// Finalization. Both stay null while the attempt is in progress and
	// are set exactly once by submit.
	SubmittedAt *time.Time `json:"submitted_at"`
	Score       *float64   `json:"score" gorm:"type:numeric(5,2)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz     `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Student User     `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
}

func (Submission) TableName() string {
	return "submissions"
}

// IsSubmitted reports whether the submission has been finalized.
func (s *Submission) IsSubmitted() bool {
	return s.SubmittedAt != nil
}

// IsExpired reports whether the attempt deadline has passed. An expired
// but unsubmitted submission stays in progress until the student submits
// (late submissions are accepted) or a teacher resets it.
func (s *Submission) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TimeRemaining returns the seconds left on the attempt clock, zero once
// expired.
func (s *Submission) TimeRemaining(now time.Time) int {
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Answer records one selected option for one question within a submission.
// A question answered with multiple options yields one row per option.
type Answer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	SubmissionID uint `json:"submission_id" gorm:"not null;index"`
	QuestionID   uint `json:"question_id" gorm:"not null;index"`
	OptionID     uint `json:"option_id" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Submission Submission `json:"-" gorm:"foreignKey:SubmissionID"`
	Question   Question   `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Option     Option     `json:"option,omitempty" gorm:"foreignKey:OptionID"`
}

func (Answer) TableName() string {
	return "answers"
}
