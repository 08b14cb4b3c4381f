package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type availabilityService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewAvailabilityService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) AvailabilityService {
	return &availabilityService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ===== VISIBILITY =====

func (s *availabilityService) VisibleQuizzes(ctx context.Context, studentID string) ([]*StudentQuizView, error) {
	student, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if student.ClassID == nil {
		// A student with no class sees no quizzes
		return []*StudentQuizView{}, nil
	}

	now := time.Now()
	quizzes, err := s.repo.Quiz().GetOpenForClass(ctx, s.db, *student.ClassID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes for class: %w", err)
	}

	views := make([]*StudentQuizView, 0, len(quizzes))
	for _, quiz := range quizzes {
		submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quiz.ID, studentID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return nil, fmt.Errorf("failed to get submission for quiz %d: %w", quiz.ID, err)
			}
			submission = nil
		}

		views = append(views, &StudentQuizView{
			Quiz:       quiz,
			Status:     s.StatusFor(quiz, submission, now),
			Submission: submission,
		})
	}

	return views, nil
}

func (s *availabilityService) IsVisible(ctx context.Context, quiz *models.Quiz, studentID string, now time.Time) (bool, error) {
	assigned, err := s.isAssigned(ctx, quiz.ID, studentID)
	if err != nil {
		return false, err
	}

	// Visible once assigned and the window has opened, including after
	// close so late status can still be shown.
	return assigned && quiz.IsOpen(now), nil
}

// ===== START GATING =====

func (s *availabilityService) CheckStartable(ctx context.Context, quiz *models.Quiz, studentID string, now time.Time) error {
	assigned, err := s.isAssigned(ctx, quiz.ID, studentID)
	if err != nil {
		return err
	}
	if !assigned {
		// Do not leak quizzes outside the student's class
		return ErrQuizNotAssigned
	}

	if !quiz.InWindow(now) {
		return ErrQuizNotAvailable
	}

	return nil
}

func (s *availabilityService) CheckAssigned(ctx context.Context, quizID uint, studentID string) error {
	assigned, err := s.isAssigned(ctx, quizID, studentID)
	if err != nil {
		return err
	}
	if !assigned {
		return ErrQuizNotAssigned
	}
	return nil
}

// ===== STATUS LABELS =====

// StatusFor computes the display status for a visible quiz. Expiry is
// derived from now on every read; nothing server-side closes attempts.
func (s *availabilityService) StatusFor(quiz *models.Quiz, submission *models.Submission, now time.Time) models.SubmissionStatus {
	if submission != nil {
		if submission.IsSubmitted() {
			return models.SubmissionCompleted
		}
		return models.SubmissionInProgress
	}

	if now.After(quiz.CloseAt) {
		return models.SubmissionLate
	}
	return models.SubmissionPending
}

// ===== HELPERS =====

func (s *availabilityService) isAssigned(ctx context.Context, quizID uint, studentID string) (bool, error) {
	student, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to get student: %w", err)
	}

	if student.ClassID == nil {
		return false, nil
	}

	assigned, err := s.repo.Quiz().IsAssignedToClass(ctx, s.db, quizID, *student.ClassID)
	if err != nil {
		return false, fmt.Errorf("failed to check class assignment: %w", err)
	}
	return assigned, nil
}
