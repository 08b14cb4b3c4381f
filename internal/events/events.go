package events

import (
	"time"
)

// Topics published by the service. The configured topic prefix is
// prepended at publisher construction.
const (
	TopicQuizSubmitted   = "quiz.submitted"
	TopicSubmissionReset = "submission.reset"
)

// QuizSubmittedEvent is emitted when a student finalizes a submission
type QuizSubmittedEvent struct {
	EventID     string    `json:"event_id"`
	QuizID      uint      `json:"quiz_id"`
	StudentID   string    `json:"student_id"`
	Score       float64   `json:"score"`
	Late        bool      `json:"late"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionResetEvent is emitted when a teacher deletes a student's
// submission, reopening the quiz for that student.
type SubmissionResetEvent struct {
	EventID   string    `json:"event_id"`
	QuizID    uint      `json:"quiz_id"`
	StudentID string    `json:"student_id"`
	ResetBy   string    `json:"reset_by"`
	ResetAt   time.Time `json:"reset_at"`
}
