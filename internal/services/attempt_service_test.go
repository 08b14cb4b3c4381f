package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== IN-MEMORY MOCK REPOSITORY =====

var errNotImplemented = errors.New("not implemented in mock")

type mockStore struct {
	users       map[string]*models.User
	quizzes     map[uint]*models.Quiz
	assignments map[uint]map[uint]bool // quiz -> assigned class set
	questions   []*models.Question
	submissions map[uint]*models.Submission
	answers     map[uint][]models.Answer
	nextID      uint

	// Failure injection
	finalizeErr    error
	createBatchErr error

	// onCreateSubmission runs before the duplicate check, so a test can
	// sneak a competing row in first.
	onCreateSubmission func()
}

func newMockStore() *mockStore {
	return &mockStore{
		users:       make(map[string]*models.User),
		quizzes:     make(map[uint]*models.Quiz),
		assignments: make(map[uint]map[uint]bool),
		submissions: make(map[uint]*models.Submission),
		answers:     make(map[uint][]models.Answer),
	}
}

func (m *mockStore) addUser(id string, role models.UserRole, classID *uint) {
	m.users[id] = &models.User{ID: id, FullName: id, Email: id + "@school.test", Role: role, ClassID: classID}
}

func (m *mockStore) addQuiz(quiz *models.Quiz, classIDs ...uint) {
	m.quizzes[quiz.ID] = quiz
	set := make(map[uint]bool, len(classIDs))
	for _, id := range classIDs {
		set[id] = true
	}
	m.assignments[quiz.ID] = set
}

func (m *mockStore) addQuestion(q *models.Question) {
	m.questions = append(m.questions, q)
}

func (m *mockStore) addSubmission(sub *models.Submission) {
	m.nextID++
	sub.ID = m.nextID
	m.submissions[sub.ID] = sub
}

type mockRepository struct {
	store *mockStore
}

func (r *mockRepository) Quiz() repositories.QuizRepository {
	return &mockQuizRepo{r.store}
}

func (r *mockRepository) Question() repositories.QuestionRepository {
	return &mockQuestionRepo{r.store}
}

func (r *mockRepository) Submission() repositories.SubmissionRepository {
	return &mockSubmissionRepo{r.store}
}

func (r *mockRepository) Answer() repositories.AnswerRepository {
	return &mockAnswerRepo{r.store}
}

func (r *mockRepository) Class() repositories.ClassRepository {
	return &mockClassRepo{r.store}
}

func (r *mockRepository) User() repositories.UserRepository {
	return &mockUserRepo{r.store}
}

func (r *mockRepository) Ping(ctx context.Context) error { return nil }

func (r *mockRepository) Close() error { return nil }

// WithTransaction snapshots the mutable state and restores it when fn
// fails, mirroring a database rollback.
func (r *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	subSnap := make(map[uint]*models.Submission, len(r.store.submissions))
	for id, sub := range r.store.submissions {
		cp := *sub
		subSnap[id] = &cp
	}
	ansSnap := make(map[uint][]models.Answer, len(r.store.answers))
	for id, rows := range r.store.answers {
		ansSnap[id] = append([]models.Answer(nil), rows...)
	}

	if err := fn(r); err != nil {
		r.store.submissions = subSnap
		r.store.answers = ansSnap
		return err
	}
	return nil
}

type mockQuizRepo struct{ store *mockStore }

func (m *mockQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := m.store.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (m *mockQuizRepo) IsAssignedToClass(ctx context.Context, tx *gorm.DB, quizID, classID uint) (bool, error) {
	return m.store.assignments[quizID][classID], nil
}

func (m *mockQuizRepo) GetOpenForClass(ctx context.Context, tx *gorm.DB, classID uint, now time.Time) ([]*models.Quiz, error) {
	var open []*models.Quiz
	for quizID, classes := range m.store.assignments {
		quiz := m.store.quizzes[quizID]
		if classes[classID] && quiz.IsOpen(now) {
			open = append(open, quiz)
		}
	}
	return open, nil
}

func (m *mockQuizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return errNotImplemented
}

// GetByIDWithDetails returns fresh copies of the quiz and its questions,
// as a real query would, so callers may mutate their view freely.
func (m *mockQuizRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := m.store.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *quiz
	for _, q := range m.store.questions {
		if q.QuizID == id {
			qc := *q
			qc.Options = append([]models.Option(nil), q.Options...)
			cp.Questions = append(cp.Questions, qc)
		}
	}
	return &cp, nil
}

func (m *mockQuizRepo) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return errNotImplemented
}
func (m *mockQuizRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return errNotImplemented
}
func (m *mockQuizRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for id, quiz := range m.store.quizzes {
		if filters.CreatedBy != nil && quiz.CreatedBy != *filters.CreatedBy {
			continue
		}
		if filters.ClassID != nil && !m.store.assignments[id][*filters.ClassID] {
			continue
		}
		if filters.OpenTo != nil && quiz.OpenAt.After(*filters.OpenTo) {
			continue
		}
		out = append(out, quiz)
	}
	return out, int64(len(out)), nil
}
func (m *mockQuizRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	return nil, 0, errNotImplemented
}
func (m *mockQuizRepo) ReplaceClasses(ctx context.Context, tx *gorm.DB, quiz *models.Quiz, classes []models.Class) error {
	return errNotImplemented
}
func (m *mockQuizRepo) GetClassIDs(ctx context.Context, tx *gorm.DB, quizID uint) ([]uint, error) {
	return nil, errNotImplemented
}
func (m *mockQuizRepo) GetStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizStats, error) {
	return &repositories.QuizStats{}, nil
}

type mockQuestionRepo struct{ store *mockStore }

func (m *mockQuestionRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.store.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) ExistingQuestionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error) {
	existing := make(map[uint]bool)
	for _, id := range ids {
		for _, q := range m.store.questions {
			if q.ID == id {
				existing[id] = true
			}
		}
	}
	return existing, nil
}

func (m *mockQuestionRepo) ExistingOptionIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]bool, error) {
	existing := make(map[uint]bool)
	for _, id := range ids {
		for _, q := range m.store.questions {
			for _, opt := range q.Options {
				if opt.ID == id {
					existing[id] = true
				}
			}
		}
	}
	return existing, nil
}

func (m *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return errNotImplemented
}
func (m *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return errNotImplemented
}
func (m *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error { return errNotImplemented }
func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockQuestionRepo) DeleteExcept(ctx context.Context, tx *gorm.DB, quizID uint, keep []uint) error {
	return errNotImplemented
}
func (m *mockQuestionRepo) CreateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error {
	return errNotImplemented
}
func (m *mockQuestionRepo) UpdateOption(ctx context.Context, tx *gorm.DB, option *models.Option) error {
	return errNotImplemented
}
func (m *mockQuestionRepo) DeleteOptionsExcept(ctx context.Context, tx *gorm.DB, questionID uint, keep []uint) error {
	return errNotImplemented
}

type mockSubmissionRepo struct{ store *mockStore }

func (m *mockSubmissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	if m.store.onCreateSubmission != nil {
		hook := m.store.onCreateSubmission
		m.store.onCreateSubmission = nil
		hook()
	}
	for _, existing := range m.store.submissions {
		if existing.QuizID == submission.QuizID && existing.StudentID == submission.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.store.addSubmission(submission)
	return nil
}

func (m *mockSubmissionRepo) GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Submission, error) {
	for _, sub := range m.store.submissions {
		if sub.QuizID == quizID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) Finalize(ctx context.Context, tx *gorm.DB, id uint, submittedAt time.Time, score float64) error {
	if m.store.finalizeErr != nil {
		return m.store.finalizeErr
	}
	sub, ok := m.store.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.SubmittedAt = &submittedAt
	sub.Score = &score
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	sub, ok := m.store.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (m *mockSubmissionRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *mockSubmissionRepo) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	return errNotImplemented
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(m.store.submissions, id)
	return nil
}

func (m *mockSubmissionRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	var out []*models.Submission
	for _, sub := range m.store.submissions {
		if sub.QuizID == quizID {
			out = append(out, sub)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockSubmissionRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	return nil, 0, errNotImplemented
}

type mockAnswerRepo struct{ store *mockStore }

func (m *mockAnswerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, answers []models.Answer) error {
	if m.store.createBatchErr != nil {
		return m.store.createBatchErr
	}
	for _, a := range answers {
		m.store.answers[a.SubmissionID] = append(m.store.answers[a.SubmissionID], a)
	}
	return nil
}

func (m *mockAnswerRepo) GetBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) ([]*models.Answer, error) {
	rows := m.store.answers[submissionID]
	out := make([]*models.Answer, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (m *mockAnswerRepo) DeleteBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) error {
	delete(m.store.answers, submissionID)
	return nil
}

type mockClassRepo struct{ store *mockStore }

func (m *mockClassRepo) Create(ctx context.Context, tx *gorm.DB, class *models.Class) error {
	return errNotImplemented
}
func (m *mockClassRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Class, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockClassRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return errNotImplemented
}
func (m *mockClassRepo) GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Class, error) {
	return nil, errNotImplemented
}
func (m *mockClassRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Class, error) {
	return nil, errNotImplemented
}
func (m *mockClassRepo) GetStudents(ctx context.Context, tx *gorm.DB, classID uint) ([]*models.User, error) {
	return nil, errNotImplemented
}

type mockUserRepo struct{ store *mockStore }

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return errNotImplemented
}
func (m *mockUserRepo) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return errNotImplemented
}
func (m *mockUserRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return errNotImplemented
}

// ===== FIXTURES =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uintPtr(v uint) *uint { return &v }

// seedClassroom sets up one student in class 1, one teacher, and quiz 1
// assigned to class 1 with an open window and two questions:
//
//	question 10: option 101 (correct), option 102
//	question 20: option 201, option 202 (correct)
//
// Quiz 2 belongs to another class and carries question 30 with option
// 301, used to exercise out-of-scope answer handling.
func seedClassroom(store *mockStore, now time.Time) {
	store.addUser("student-1", models.RoleStudent, uintPtr(1))
	store.addUser("student-2", models.RoleStudent, uintPtr(2))
	store.addUser("loner", models.RoleStudent, nil)
	store.addUser("teacher-1", models.RoleTeacher, nil)

	store.addQuiz(&models.Quiz{
		ID:              1,
		Title:           "Midterm review",
		DurationMinutes: 30,
		OpenAt:          now.Add(-time.Hour),
		CloseAt:         now.Add(time.Hour),
		CreatedBy:       "teacher-1",
	}, 1)

	store.addQuiz(&models.Quiz{
		ID:              2,
		Title:           "Other class quiz",
		DurationMinutes: 30,
		OpenAt:          now.Add(-time.Hour),
		CloseAt:         now.Add(time.Hour),
		CreatedBy:       "teacher-1",
	}, 2)

	store.addQuestion(&models.Question{
		ID: 10, QuizID: 1, Text: "2+2?",
		Options: []models.Option{
			{ID: 101, QuestionID: 10, Text: "4", IsCorrect: true},
			{ID: 102, QuestionID: 10, Text: "5"},
		},
	})
	store.addQuestion(&models.Question{
		ID: 20, QuizID: 1, Text: "3*3?",
		Options: []models.Option{
			{ID: 201, QuestionID: 20, Text: "6"},
			{ID: 202, QuestionID: 20, Text: "9", IsCorrect: true},
		},
	})
	store.addQuestion(&models.Question{
		ID: 30, QuizID: 2, Text: "Elsewhere",
		Options: []models.Option{
			{ID: 301, QuestionID: 30, Text: "n/a", IsCorrect: true},
		},
	})
}

func newAttemptFixture(t *testing.T) (*mockStore, AttemptService, *events.MockPublisher) {
	t.Helper()
	store := newMockStore()
	seedClassroom(store, time.Now())

	logger := testLogger()
	repo := &mockRepository{store: store}
	publisher := events.NewMockPublisher(logger)
	availability := NewAvailabilityService(repo, nil, logger)
	scoring := NewScoringService(logger)
	svc := NewAttemptService(repo, nil, logger, validator.New(), availability, scoring, publisher)
	return store, svc, publisher
}

func answerInputs(pairs ...[2]uint) []AnswerInput {
	inputs := make([]AnswerInput, len(pairs))
	for i, p := range pairs {
		q, o := p[0], p[1]
		inputs[i] = AnswerInput{QuestionID: &q, OptionID: &o}
	}
	return inputs
}

// ===== START =====

func TestAttemptService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates submission with duration-based expiry", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		before := time.Now()
		resp, err := svc.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.Resumed {
			t.Error("first start should not be a resume")
		}
		if resp.Submission.ID == 0 {
			t.Error("submission should be persisted with an ID")
		}

		wantExpiry := resp.Submission.StartedAt.Add(30 * time.Minute)
		if !resp.Submission.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("expires_at = %v, want started_at + 30m = %v", resp.Submission.ExpiresAt, wantExpiry)
		}
		if resp.Submission.StartedAt.Before(before) {
			t.Errorf("started_at %v predates the call", resp.Submission.StartedAt)
		}
		if resp.TimeRemaining <= 0 || resp.TimeRemaining > 30*60 {
			t.Errorf("time_remaining = %d, want within (0, 1800]", resp.TimeRemaining)
		}
	})

	t.Run("second start resumes with the original clock", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		first, err := svc.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("first Start failed: %v", err)
		}

		second, err := svc.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("second Start failed: %v", err)
		}
		if !second.Resumed {
			t.Error("second start should resume")
		}
		if second.Submission.ID != first.Submission.ID {
			t.Errorf("resumed submission ID = %d, want %d", second.Submission.ID, first.Submission.ID)
		}
		if !second.Submission.ExpiresAt.Equal(first.Submission.ExpiresAt) {
			t.Errorf("resume changed the deadline: %v -> %v", first.Submission.ExpiresAt, second.Submission.ExpiresAt)
		}
	})

	t.Run("teacher cannot start", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.Start(ctx, 1, "teacher-1")
		var perm *PermissionError
		if !errors.As(err, &perm) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})

	t.Run("quiz of another class is reported as not found", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.Start(ctx, 2, "student-1")
		if !errors.Is(err, ErrQuizNotAssigned) {
			t.Fatalf("expected ErrQuizNotAssigned, got %v", err)
		}
	})

	t.Run("student without a class sees nothing", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.Start(ctx, 1, "loner")
		if !errors.Is(err, ErrQuizNotAssigned) {
			t.Fatalf("expected ErrQuizNotAssigned, got %v", err)
		}
	})

	t.Run("missing quiz", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.Start(ctx, 999, "student-1")
		if !errors.Is(err, ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("window not open yet", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		store.quizzes[1].OpenAt = time.Now().Add(time.Hour)

		_, err := svc.Start(ctx, 1, "student-1")
		if !errors.Is(err, ErrQuizNotAvailable) {
			t.Fatalf("expected ErrQuizNotAvailable, got %v", err)
		}
	})

	t.Run("window already closed", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		store.quizzes[1].CloseAt = time.Now().Add(-time.Minute)

		_, err := svc.Start(ctx, 1, "student-1")
		if !errors.Is(err, ErrQuizNotAvailable) {
			t.Fatalf("expected ErrQuizNotAvailable, got %v", err)
		}
	})

	t.Run("already submitted attempt cannot be restarted", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		now := time.Now()
		score := 1.0
		store.addSubmission(&models.Submission{
			QuizID: 1, StudentID: "student-1",
			StartedAt: now.Add(-10 * time.Minute), ExpiresAt: now.Add(20 * time.Minute),
			SubmittedAt: &now, Score: &score,
		})

		_, err := svc.Start(ctx, 1, "student-1")
		if !errors.Is(err, ErrSubmissionAlreadySubmitted) {
			t.Fatalf("expected ErrSubmissionAlreadySubmitted, got %v", err)
		}
	})

	t.Run("losing a concurrent start converges to the winner", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)

		var winnerID uint
		store.onCreateSubmission = func() {
			now := time.Now()
			winner := &models.Submission{
				QuizID: 1, StudentID: "student-1",
				StartedAt: now, ExpiresAt: now.Add(30 * time.Minute),
			}
			store.addSubmission(winner)
			winnerID = winner.ID
		}

		resp, err := svc.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("Start failed after losing the race: %v", err)
		}
		if !resp.Resumed {
			t.Error("race loser should resume the winning row")
		}
		if resp.Submission.ID != winnerID {
			t.Errorf("converged to submission %d, want winner %d", resp.Submission.ID, winnerID)
		}
		if len(store.submissions) != 1 {
			t.Errorf("store holds %d submissions, want exactly 1", len(store.submissions))
		}
	})
}

// ===== SUBMIT =====

func TestAttemptService_Submit(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, svc AttemptService) *models.Submission {
		t.Helper()
		resp, err := svc.Start(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		return resp.Submission
	}

	t.Run("scores one point per correctly answered question", func(t *testing.T) {
		store, svc, publisher := newAttemptFixture(t)
		sub := start(t, svc)

		// 10 answered right, 20 answered wrong
		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}, [2]uint{20, 201}),
		}, "student-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("score = %v, want 1.00", resp.Score)
		}
		if !resp.Submission.IsSubmitted() {
			t.Error("submission should be finalized")
		}
		if got := len(store.answers[sub.ID]); got != 2 {
			t.Errorf("stored %d answer rows, want 2", got)
		}

		published := publisher.SubmittedEvents()
		if len(published) != 1 {
			t.Fatalf("published %d events, want 1", len(published))
		}
		if published[0].StudentID != "student-1" || published[0].Score != 1.0 {
			t.Errorf("event = %+v, want student-1 with score 1", published[0])
		}
		if published[0].Late {
			t.Error("submission inside the clock should not be flagged late")
		}
	})

	t.Run("empty answers finalize with zero score", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		start(t, svc)

		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{}, "student-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if resp.Score != 0 {
			t.Errorf("score = %v, want 0.00", resp.Score)
		}
		if !resp.Submission.IsSubmitted() {
			t.Error("empty submission must still be finalized")
		}
	})

	t.Run("late submission is accepted and flagged", func(t *testing.T) {
		store, svc, publisher := newAttemptFixture(t)
		sub := start(t, svc)

		// Push the deadline into the past; no server timer closes the
		// attempt, so submit must still succeed.
		sub.ExpiresAt = time.Now().Add(-time.Minute)
		store.submissions[sub.ID].ExpiresAt = sub.ExpiresAt

		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}),
		}, "student-1")
		if err != nil {
			t.Fatalf("late Submit rejected: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("late submission score = %v, want full credit 1.00", resp.Score)
		}

		published := publisher.SubmittedEvents()
		if len(published) != 1 || !published[0].Late {
			t.Errorf("late flag not set on published event: %+v", published)
		}
	})

	t.Run("submit after the quiz window closed still succeeds", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		start(t, svc)
		store.quizzes[1].CloseAt = time.Now().Add(-time.Minute)

		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}),
		}, "student-1")
		if err != nil {
			t.Fatalf("Submit after window close rejected: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("score = %v, want 1.00", resp.Score)
		}
	})

	t.Run("second submit is rejected", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		start(t, svc)

		if _, err := svc.Submit(ctx, 1, &SubmitQuizRequest{}, "student-1"); err != nil {
			t.Fatalf("first Submit failed: %v", err)
		}
		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{}, "student-1")
		if !errors.Is(err, ErrSubmissionAlreadySubmitted) {
			t.Fatalf("expected ErrSubmissionAlreadySubmitted, got %v", err)
		}
	})

	t.Run("submit without start", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{}, "student-1")
		if !errors.Is(err, ErrSubmissionNotStarted) {
			t.Fatalf("expected ErrSubmissionNotStarted, got %v", err)
		}
	})

	t.Run("missing answer fields are a validation failure", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		start(t, svc)

		q := uint(10)
		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: []AnswerInput{{QuestionID: &q}}, // no optionId
		}, "student-1")

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected ValidationErrors, got %v", err)
		}
		if verrs[0].Field != "answers[0].optionId" {
			t.Errorf("field = %q, want answers[0].optionId", verrs[0].Field)
		}
	})

	t.Run("IDs that exist nowhere are a validation failure", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		start(t, svc)

		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{777, 888}),
		}, "student-1")

		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected ValidationErrors, got %v", err)
		}
		if len(verrs) != 2 {
			t.Errorf("got %d validation errors, want 2 (question and option)", len(verrs))
		}
	})

	t.Run("real IDs outside the quiz are dropped silently", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		sub := start(t, svc)

		// Question 30 / option 301 exist but belong to quiz 2; option 202
		// exists in quiz 1 but under question 20, not 10.
		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs(
				[2]uint{10, 101}, // valid, correct
				[2]uint{30, 301}, // other quiz
				[2]uint{10, 202}, // option of a different question
			),
		}, "student-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("score = %v, want 1.00 from the single valid answer", resp.Score)
		}
		if got := len(store.answers[sub.ID]); got != 1 {
			t.Errorf("stored %d answer rows, want 1 (out-of-scope pairs dropped)", got)
		}
	})

	t.Run("duplicate pairs contribute once", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		sub := start(t, svc)

		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}, [2]uint{10, 101}),
		}, "student-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("score = %v, want 1.00", resp.Score)
		}
		if got := len(store.answers[sub.ID]); got != 1 {
			t.Errorf("stored %d answer rows, want 1", got)
		}
	})

	t.Run("selecting two options for one question scores zero for it", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		start(t, svc)

		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}, [2]uint{10, 102}, [2]uint{20, 202}),
		}, "student-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("score = %v, want 1.00 (question 10 voided by double selection)", resp.Score)
		}
	})

	t.Run("failed finalize rolls the whole write back", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		sub := start(t, svc)
		store.finalizeErr = errors.New("connection reset")

		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}),
		}, "student-1")
		if err == nil {
			t.Fatal("Submit should fail when finalize fails")
		}

		if got := len(store.answers[sub.ID]); got != 0 {
			t.Errorf("rollback left %d answer rows behind", got)
		}
		if store.submissions[sub.ID].IsSubmitted() {
			t.Error("rollback left the submission finalized")
		}

		// The attempt stays open: clearing the fault lets the student retry.
		store.finalizeErr = nil
		resp, err := svc.Submit(ctx, 1, &SubmitQuizRequest{
			Answers: answerInputs([2]uint{10, 101}),
		}, "student-1")
		if err != nil {
			t.Fatalf("retry after rollback failed: %v", err)
		}
		if resp.Score != 1.0 {
			t.Errorf("retry score = %v, want 1.00", resp.Score)
		}
	})
}

// ===== READ OPERATIONS =====

func TestAttemptService_GetTimeRemaining(t *testing.T) {
	ctx := context.Background()

	t.Run("counts down from the fixed deadline", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)
		if _, err := svc.Start(ctx, 1, "student-1"); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		remaining, err := svc.GetTimeRemaining(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("GetTimeRemaining failed: %v", err)
		}
		if remaining <= 0 || remaining > 30*60 {
			t.Errorf("remaining = %d, want within (0, 1800]", remaining)
		}
	})

	t.Run("zero after the deadline", func(t *testing.T) {
		store, svc, _ := newAttemptFixture(t)
		now := time.Now()
		store.addSubmission(&models.Submission{
			QuizID: 1, StudentID: "student-1",
			StartedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-30 * time.Minute),
		})

		remaining, err := svc.GetTimeRemaining(ctx, 1, "student-1")
		if err != nil {
			t.Fatalf("GetTimeRemaining failed: %v", err)
		}
		if remaining != 0 {
			t.Errorf("remaining = %d, want 0 once expired", remaining)
		}
	})

	t.Run("no attempt", func(t *testing.T) {
		_, svc, _ := newAttemptFixture(t)

		_, err := svc.GetTimeRemaining(ctx, 1, "student-1")
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
		}
	})
}
