package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type attemptService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	validator    *validator.Validator
	availability AvailabilityService
	scoring      ScoringService
	publisher    events.Publisher
}

func NewAttemptService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	availability AvailabilityService,
	scoring ScoringService,
	publisher events.Publisher,
) AttemptService {
	return &attemptService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    validator,
		availability: availability,
		scoring:      scoring,
		publisher:    publisher,
	}
}

// ===== START =====

func (s *attemptService) Start(ctx context.Context, quizID uint, studentID string) (*SubmissionResponse, error) {
	s.logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"student_id", studentID)

	if err := s.requireStudent(ctx, studentID, quizID, "start"); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	now := time.Now()
	if err := s.availability.CheckStartable(ctx, quiz, studentID, now); err != nil {
		return nil, err
	}

	// Idempotent re-entry: an existing in-progress submission is returned
	// unchanged, with its original clock.
	existing, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if existing != nil {
		return s.resumeExisting(existing, now)
	}

	submission := &models.Submission{
		QuizID:    quizID,
		StudentID: studentID,
		StartedAt: now,
		ExpiresAt: now.Add(time.Duration(quiz.DurationMinutes) * time.Minute),
	}

	if err := s.repo.Submission().Create(ctx, s.db, submission); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			// Lost the race against a concurrent start: converge to the
			// row that won the unique (quiz_id, student_id) constraint.
			winner, ferr := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to get submission after duplicate start: %w", ferr)
			}
			return s.resumeExisting(winner, now)
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("Quiz attempt started",
		"submission_id", submission.ID,
		"quiz_id", quizID,
		"student_id", studentID,
		"expires_at", submission.ExpiresAt)

	return &SubmissionResponse{
		Submission:    submission,
		TimeRemaining: submission.TimeRemaining(now),
		Resumed:       false,
	}, nil
}

func (s *attemptService) resumeExisting(submission *models.Submission, now time.Time) (*SubmissionResponse, error) {
	if submission.IsSubmitted() {
		return nil, ErrSubmissionAlreadySubmitted
	}

	s.logger.Info("Resuming existing attempt",
		"submission_id", submission.ID,
		"quiz_id", submission.QuizID,
		"student_id", submission.StudentID)

	return &SubmissionResponse{
		Submission:    submission,
		TimeRemaining: submission.TimeRemaining(now),
		Resumed:       true,
	}, nil
}

// ===== SUBMIT =====

func (s *attemptService) Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest, studentID string) (*SubmitQuizResponse, error) {
	s.logger.Info("Submitting quiz attempt",
		"quiz_id", quizID,
		"student_id", studentID,
		"answers_count", len(req.Answers))

	if err := s.requireStudent(ctx, studentID, quizID, "submit"); err != nil {
		return nil, err
	}

	if err := s.availability.CheckAssigned(ctx, quizID, studentID); err != nil {
		return nil, err
	}

	submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotStarted
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if submission.IsSubmitted() {
		return nil, ErrSubmissionAlreadySubmitted
	}

	// Expiry is deliberately not checked: a submission after the attempt
	// clock ran out is still accepted and scored, flagged late by the
	// submitted-vs-expires timestamps.

	questions, err := s.repo.Question().GetByQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}

	answers, err := s.validateAnswers(ctx, submission.ID, questions, req.Answers)
	if err != nil {
		return nil, err
	}

	score := s.scoring.Score(questions, answers)
	now := time.Now()

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Replace, never append: a reset-then-resubmit cycle must not
		// leave stale answer rows behind.
		if err := txRepo.Answer().DeleteBySubmission(ctx, nil, submission.ID); err != nil {
			return fmt.Errorf("failed to clear prior answers: %w", err)
		}

		if len(answers) > 0 {
			if err := txRepo.Answer().CreateBatch(ctx, nil, answers); err != nil {
				return fmt.Errorf("failed to store answers: %w", err)
			}
		}

		if err := txRepo.Submission().Finalize(ctx, nil, submission.ID, now, score); err != nil {
			return fmt.Errorf("failed to finalize submission: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit attempt transaction: %w", err)
	}

	submission.SubmittedAt = timePtr(now)
	submission.Score = &score

	late := submission.IsExpired(now)
	s.logger.Info("Quiz attempt submitted",
		"submission_id", submission.ID,
		"quiz_id", quizID,
		"student_id", studentID,
		"score", score,
		"late", late)

	if err := s.publisher.PublishQuizSubmitted(ctx, events.QuizSubmittedEvent{
		QuizID:      quizID,
		StudentID:   studentID,
		Score:       score,
		Late:        late,
		SubmittedAt: now,
	}); err != nil {
		s.logger.Error("Failed to publish submission event",
			"submission_id", submission.ID, "error", err)
	}

	return &SubmitQuizResponse{
		Submission: submission,
		Score:      score,
	}, nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetCurrent(ctx context.Context, quizID uint, studentID string) (*SubmissionResponse, error) {
	submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	now := time.Now()
	return &SubmissionResponse{
		Submission:    submission,
		TimeRemaining: submission.TimeRemaining(now),
		Resumed:       !submission.IsSubmitted(),
	}, nil
}

func (s *attemptService) GetTimeRemaining(ctx context.Context, quizID uint, studentID string) (int, error) {
	submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrSubmissionNotFound
		}
		return 0, fmt.Errorf("failed to get submission: %w", err)
	}

	if submission.IsSubmitted() {
		return 0, nil
	}
	return submission.TimeRemaining(time.Now()), nil
}

// ===== HELPERS =====

func (s *attemptService) requireStudent(ctx context.Context, userID string, quizID uint, action string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsStudent() {
		return NewPermissionError(userID, quizID, "quiz", action, "only students can take quizzes")
	}
	return nil
}

func timePtr(now time.Time) *time.Time {
	return &now
}
