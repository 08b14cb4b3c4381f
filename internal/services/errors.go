package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Quiz errors
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotAssigned is returned when a quiz exists but is not
	// assigned to the student's class. Handlers map it to 404 so
	// unassigned quizzes are indistinguishable from missing ones.
	ErrQuizNotAssigned = errors.New("quiz not found")
	// ErrQuizNotAvailable covers both a window that has not opened and
	// one that has already closed at start time.
	ErrQuizNotAvailable   = errors.New("quiz is not available")
	ErrQuizHasSubmissions = errors.New("quiz already has submissions")

	// Submission errors
	ErrSubmissionNotFound         = errors.New("submission not found")
	ErrSubmissionAlreadySubmitted = errors.New("quiz already submitted")
	ErrSubmissionNotStarted       = errors.New("quiz was not started")

	// Class errors
	ErrClassNotFound     = errors.New("class not found")
	ErrStudentNotInClass = errors.New("student is not enrolled in a class")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== TYPED ERRORS =====

// PermissionError indicates the user may not perform the action
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError indicates a domain rule was violated
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// ValidationErrors re-exported so handlers can errors.As against the
// services package alone.
type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError
