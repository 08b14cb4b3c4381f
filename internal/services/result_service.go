package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type resultService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	publisher events.Publisher
}

func NewResultService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, publisher events.Publisher) ResultService {
	return &resultService{
		repo:      repo,
		db:        db,
		logger:    logger,
		publisher: publisher,
	}
}

// ===== RESULTS REVIEW =====

func (s *resultService) GetQuizResults(ctx context.Context, quizID uint, filters repositories.SubmissionFilters, userID string) (*QuizResultsResponse, error) {
	quiz, err := s.ownedQuiz(ctx, quizID, userID, "view_results")
	if err != nil {
		return nil, err
	}

	submissions, total, err := s.repo.Submission().GetByQuiz(ctx, s.db, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz submissions: %w", err)
	}

	stats, err := s.repo.Quiz().GetStats(ctx, s.db, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}

	results := make([]*QuizResultEntry, len(submissions))
	for i, sub := range submissions {
		results[i] = buildResultEntry(sub)
	}

	return &QuizResultsResponse{
		Quiz:    quiz,
		Stats:   stats,
		Results: results,
		Total:   total,
	}, nil
}

func (s *resultService) GetStudentResult(ctx context.Context, quizID uint, studentID string, userID string) (*StudentResultResponse, error) {
	// A student may read their own result; anyone else needs to own the quiz.
	if userID != studentID {
		if _, err := s.ownedQuiz(ctx, quizID, userID, "view_result"); err != nil {
			return nil, err
		}
	}

	submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	answers, err := s.repo.Answer().GetBySubmission(ctx, s.db, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission answers: %w", err)
	}

	return &StudentResultResponse{
		Submission: submission,
		Answers:    answers,
	}, nil
}

// ===== RESET =====

func (s *resultService) ResetSubmission(ctx context.Context, quizID uint, studentID string, userID string) error {
	s.logger.Info("Resetting submission",
		"quiz_id", quizID,
		"student_id", studentID,
		"user_id", userID)

	if _, err := s.ownedQuiz(ctx, quizID, userID, "reset_submission"); err != nil {
		return err
	}

	submission, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission: %w", err)
	}

	// Remove answers and the submission row together so a half-reset can
	// never block the student from retaking.
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Answer().DeleteBySubmission(ctx, nil, submission.ID); err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		if err := txRepo.Submission().Delete(ctx, nil, submission.ID); err != nil {
			return fmt.Errorf("failed to delete submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset submission transaction: %w", err)
	}

	s.logger.Info("Submission reset",
		"submission_id", submission.ID,
		"quiz_id", quizID,
		"student_id", studentID)

	if err := s.publisher.PublishSubmissionReset(ctx, events.SubmissionResetEvent{
		QuizID:    quizID,
		StudentID: studentID,
		ResetBy:   userID,
		ResetAt:   time.Now(),
	}); err != nil {
		s.logger.Error("Failed to publish reset event",
			"submission_id", submission.ID, "error", err)
	}

	return nil
}

// ===== EXPORT =====

func (s *resultService) ExportResults(ctx context.Context, quizID uint, userID string) ([]byte, error) {
	quiz, err := s.ownedQuiz(ctx, quizID, userID, "export_results")
	if err != nil {
		return nil, err
	}

	submissions, _, err := s.repo.Submission().GetByQuiz(ctx, s.db, quizID, repositories.SubmissionFilters{
		SortBy:    "submitted_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz submissions: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Student ID", "Student Name", "Started At", "Submitted At", "Late", "Score"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, sub := range submissions {
		entry := buildResultEntry(sub)
		values := []interface{}{
			entry.StudentID,
			entry.StudentName,
			entry.StartedAt.Format(time.RFC3339),
			formatTimePtr(entry.SubmittedAt),
			entry.Late,
			formatScore(entry.Score),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write result row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exported quiz results",
		"quiz_id", quizID,
		"title", quiz.Title,
		"rows", len(submissions))

	return buf.Bytes(), nil
}

// ===== HELPERS =====

// ownedQuiz loads the quiz and verifies the caller owns it (or is admin).
func (s *resultService) ownedQuiz(ctx context.Context, quizID uint, userID string, action string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Role != models.RoleAdmin && quiz.CreatedBy != user.ID {
		return nil, NewPermissionError(userID, quizID, "quiz", action, "not the quiz owner")
	}

	return quiz, nil
}

func buildResultEntry(sub *models.Submission) *QuizResultEntry {
	entry := &QuizResultEntry{
		StudentID:   sub.StudentID,
		StudentName: sub.Student.FullName,
		Score:       sub.Score,
		StartedAt:   sub.StartedAt,
		SubmittedAt: sub.SubmittedAt,
	}
	if sub.SubmittedAt != nil {
		entry.Late = sub.SubmittedAt.After(sub.ExpiresAt)
	}
	return entry
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatScore(score *float64) interface{} {
	if score == nil {
		return ""
	}
	return *score
}
