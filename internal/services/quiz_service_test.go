package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// newQuizFixture seeds the shared classroom plus a second teacher, an
// admin, and quiz 3 assigned to class 1 but not yet open.
func newQuizFixture(t *testing.T) (*mockStore, QuizService) {
	t.Helper()
	store := newMockStore()
	now := time.Now()
	seedClassroom(store, now)

	store.addUser("teacher-2", models.RoleTeacher, nil)
	store.addUser("admin-1", models.RoleAdmin, nil)
	store.addQuiz(&models.Quiz{
		ID:              3,
		Title:           "Next week's quiz",
		DurationMinutes: 30,
		OpenAt:          now.Add(time.Hour),
		CloseAt:         now.Add(2 * time.Hour),
		CreatedBy:       "teacher-1",
	}, 1)

	repo := &mockRepository{store: store}
	svc := NewQuizService(repo, nil, testLogger(), validator.New())
	return store, svc
}

func correctOptionCount(resp *QuizResponse) int {
	count := 0
	for _, q := range resp.Questions {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				count++
			}
		}
	}
	return count
}

func TestQuizService_GetByIDWithDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned student gets questions without the answer key", func(t *testing.T) {
		store, svc := newQuizFixture(t)

		resp, err := svc.GetByIDWithDetails(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("GetByIDWithDetails failed: %v", err)
		}
		if len(resp.Questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(resp.Questions))
		}
		if n := correctOptionCount(resp); n != 0 {
			t.Errorf("expected no is_correct flags for an in-progress student, got %d", n)
		}

		// The stored rows keep their key untouched.
		if !store.questions[0].Options[0].IsCorrect {
			t.Error("stored answer key was mutated")
		}
	})

	t.Run("assigned student sees the key after submitting", func(t *testing.T) {
		store, svc := newQuizFixture(t)
		seedFinalizedSubmission(store, 1, "student-1", 2)

		resp, err := svc.GetByIDWithDetails(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("GetByIDWithDetails failed: %v", err)
		}
		if n := correctOptionCount(resp); n != 2 {
			t.Errorf("expected 2 correct options after submission, got %d", n)
		}
	})

	t.Run("student outside the class gets not found", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 1, "student-2"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("classless student gets not found", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 1, "loner"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("quiz hidden from students before it opens", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 3, "student-1"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("owner sees the full answer key", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		resp, err := svc.GetByIDWithDetails(ctx, 1, "teacher-1")
		if err != nil {
			t.Fatalf("GetByIDWithDetails failed: %v", err)
		}
		if n := correctOptionCount(resp); n != 2 {
			t.Errorf("expected 2 correct options for the owner, got %d", n)
		}
	})

	t.Run("other teacher gets not found", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 1, "teacher-2"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("admin sees any quiz", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 1, "admin-1"); err != nil {
			t.Errorf("GetByIDWithDetails failed for admin: %v", err)
		}
	})

	t.Run("missing quiz", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 99, "student-1"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByIDWithDetails(ctx, 1, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestQuizService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned student can read quiz metadata", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		resp, err := svc.GetByID(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if resp.Title != "Midterm review" {
			t.Errorf("unexpected quiz: %q", resp.Title)
		}
	})

	t.Run("unassigned student gets not found", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if _, err := svc.GetByID(ctx, 1, "student-2"); !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("expected ErrQuizNotFound, got %v", err)
		}
	})
}

func TestQuizService_List(t *testing.T) {
	ctx := context.Background()

	listedIDs := func(t *testing.T, svc QuizService, userID string) map[uint]bool {
		t.Helper()
		resp, err := svc.List(ctx, repositories.QuizFilters{}, userID)
		if err != nil {
			t.Fatalf("List failed for %s: %v", userID, err)
		}
		ids := make(map[uint]bool, len(resp.Quizzes))
		for _, q := range resp.Quizzes {
			ids[q.ID] = true
		}
		return ids
	}

	t.Run("student sees only opened quizzes of their class", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		ids := listedIDs(t, svc, "student-1")
		if len(ids) != 1 || !ids[1] {
			t.Errorf("expected exactly quiz 1, got %v", ids)
		}
	})

	t.Run("classless student sees nothing", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if ids := listedIDs(t, svc, "loner"); len(ids) != 0 {
			t.Errorf("expected empty list, got %v", ids)
		}
	})

	t.Run("teacher sees only their own quizzes", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if ids := listedIDs(t, svc, "teacher-2"); len(ids) != 0 {
			t.Errorf("expected empty list for non-owner teacher, got %v", ids)
		}
		ids := listedIDs(t, svc, "teacher-1")
		if len(ids) != 3 {
			t.Errorf("expected all 3 owned quizzes, got %v", ids)
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		_, svc := newQuizFixture(t)

		if ids := listedIDs(t, svc, "admin-1"); len(ids) != 3 {
			t.Errorf("expected all 3 quizzes, got %v", ids)
		}
	})
}
