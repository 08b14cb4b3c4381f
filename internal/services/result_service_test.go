package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

func newResultFixture(t *testing.T) (*mockStore, ResultService, *events.MockPublisher) {
	t.Helper()
	store := newMockStore()
	seedClassroom(store, time.Now())

	logger := testLogger()
	publisher := events.NewMockPublisher(logger)
	svc := NewResultService(&mockRepository{store: store}, nil, logger, publisher)
	return store, svc, publisher
}

func seedFinalizedSubmission(store *mockStore, quizID uint, studentID string, score float64) *models.Submission {
	now := time.Now()
	sub := &models.Submission{
		QuizID: quizID, StudentID: studentID,
		StartedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(10 * time.Minute),
		SubmittedAt: &now, Score: &score,
	}
	store.addSubmission(sub)
	store.answers[sub.ID] = []models.Answer{{SubmissionID: sub.ID, QuestionID: 10, OptionID: 101}}
	return sub
}

func TestResultService_ResetSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("owner reset removes submission and answers", func(t *testing.T) {
		store, svc, publisher := newResultFixture(t)
		sub := seedFinalizedSubmission(store, 1, "student-1", 2)

		if err := svc.ResetSubmission(ctx, 1, "student-1", "teacher-1"); err != nil {
			t.Fatalf("ResetSubmission failed: %v", err)
		}

		if _, ok := store.submissions[sub.ID]; ok {
			t.Error("submission row should be gone")
		}
		if len(store.answers[sub.ID]) != 0 {
			t.Error("answer rows should be gone")
		}

		resets := publisher.ResetEvents()
		if len(resets) != 1 {
			t.Fatalf("published %d reset events, want 1", len(resets))
		}
		if resets[0].StudentID != "student-1" || resets[0].ResetBy != "teacher-1" {
			t.Errorf("reset event = %+v", resets[0])
		}
	})

	t.Run("reset reopens the quiz for a fresh attempt", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		if err := svc.ResetSubmission(ctx, 1, "student-1", "teacher-1"); err != nil {
			t.Fatalf("ResetSubmission failed: %v", err)
		}

		logger := testLogger()
		repo := &mockRepository{store: store}
		attempts := NewAttemptService(repo, nil, logger, nil,
			NewAvailabilityService(repo, nil, logger),
			NewScoringService(logger),
			events.NewMockPublisher(logger))

		resp, err := attempts.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("Start after reset failed: %v", err)
		}
		if resp.Resumed {
			t.Error("start after reset should create a fresh attempt")
		}
	})

	t.Run("non-owner teacher is denied", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		store.addUser("teacher-2", models.RoleTeacher, nil)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		err := svc.ResetSubmission(ctx, 1, "student-1", "teacher-2")
		var perm *PermissionError
		if !errors.As(err, &perm) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})

	t.Run("admin may reset any quiz", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		store.addUser("admin-1", models.RoleAdmin, nil)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		if err := svc.ResetSubmission(ctx, 1, "student-1", "admin-1"); err != nil {
			t.Fatalf("admin ResetSubmission failed: %v", err)
		}
	})

	t.Run("nothing to reset", func(t *testing.T) {
		_, svc, _ := newResultFixture(t)

		err := svc.ResetSubmission(ctx, 1, "student-1", "teacher-1")
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
		}
	})
}

func TestResultService_GetStudentResult(t *testing.T) {
	ctx := context.Background()

	t.Run("student reads their own result", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		resp, err := svc.GetStudentResult(ctx, 1, "student-1", "student-1")
		if err != nil {
			t.Fatalf("GetStudentResult failed: %v", err)
		}
		if resp.Submission.Score == nil || *resp.Submission.Score != 2 {
			t.Errorf("score = %v, want 2", resp.Submission.Score)
		}
		if len(resp.Answers) != 1 {
			t.Errorf("got %d answers, want 1", len(resp.Answers))
		}
	})

	t.Run("another student is denied", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		_, err := svc.GetStudentResult(ctx, 1, "student-1", "student-2")
		var perm *PermissionError
		if !errors.As(err, &perm) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})

	t.Run("quiz owner reads any result", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		if _, err := svc.GetStudentResult(ctx, 1, "student-1", "teacher-1"); err != nil {
			t.Fatalf("owner GetStudentResult failed: %v", err)
		}
	})
}

func TestResultService_GetQuizResults(t *testing.T) {
	ctx := context.Background()

	t.Run("late flag derives from submitted vs expires", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)

		now := time.Now()
		onTime := now.Add(-time.Minute)
		late := now
		score := 1.0
		store.addSubmission(&models.Submission{
			QuizID: 1, StudentID: "student-1",
			StartedAt: now.Add(-30 * time.Minute), ExpiresAt: now,
			SubmittedAt: &onTime, Score: &score,
		})
		store.addSubmission(&models.Submission{
			QuizID: 1, StudentID: "student-2",
			StartedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-30 * time.Minute),
			SubmittedAt: &late, Score: &score,
		})

		resp, err := svc.GetQuizResults(ctx, 1, repositories.SubmissionFilters{}, "teacher-1")
		if err != nil {
			t.Fatalf("GetQuizResults failed: %v", err)
		}
		if resp.Total != 2 {
			t.Fatalf("total = %d, want 2", resp.Total)
		}

		lateByStudent := make(map[string]bool, len(resp.Results))
		for _, entry := range resp.Results {
			lateByStudent[entry.StudentID] = entry.Late
		}
		if lateByStudent["student-1"] {
			t.Error("student-1 submitted before expiry, should not be late")
		}
		if !lateByStudent["student-2"] {
			t.Error("student-2 submitted after expiry, should be late")
		}
	})

	t.Run("in-progress attempt is listed without a score", func(t *testing.T) {
		store, svc, _ := newResultFixture(t)

		now := time.Now()
		store.addSubmission(&models.Submission{
			QuizID: 1, StudentID: "student-1",
			StartedAt: now.Add(-5 * time.Minute), ExpiresAt: now.Add(25 * time.Minute),
		})

		resp, err := svc.GetQuizResults(ctx, 1, repositories.SubmissionFilters{}, "teacher-1")
		if err != nil {
			t.Fatalf("GetQuizResults failed: %v", err)
		}
		if len(resp.Results) != 1 {
			t.Fatalf("got %d results, want 1", len(resp.Results))
		}
		entry := resp.Results[0]
		if entry.Score != nil || entry.SubmittedAt != nil || entry.Late {
			t.Errorf("in-progress entry = %+v, want no score, no submitted_at, not late", entry)
		}
	})
}

func TestResultService_ExportResults(t *testing.T) {
	store, svc, _ := newResultFixture(t)
	seedFinalizedSubmission(store, 1, "student-1", 2)

	data, err := svc.ExportResults(context.Background(), 1, "teacher-1")
	if err != nil {
		t.Fatalf("ExportResults failed: %v", err)
	}
	// xlsx is a zip container; check the magic bytes rather than parsing.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("export does not look like an xlsx workbook (got %d bytes)", len(data))
	}
}
