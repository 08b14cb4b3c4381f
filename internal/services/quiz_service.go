package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error) {
	s.logger.Info("Creating quiz", "title", req.Title, "creator_id", creatorID)

	if verrs := s.validator.GetBusinessValidator().ValidateQuizCreate(req); len(verrs) > 0 {
		return nil, verrs
	}

	creator, err := s.requireTeacher(ctx, creatorID, 0, "create")
	if err != nil {
		return nil, err
	}

	classes, err := s.ownedClasses(ctx, req.ClassIDs, creator)
	if err != nil {
		return nil, err
	}

	settings, err := marshalSettings(req.Settings)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		OpenAt:          req.OpenAt,
		CloseAt:         req.CloseAt,
		Settings:        settings,
		CreatedBy:       creatorID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Quiz().Create(ctx, nil, quiz); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}

		for i, qReq := range req.Questions {
			if err := s.createQuestion(ctx, txRepo, quiz.ID, qReq, i); err != nil {
				return err
			}
		}

		if err := txRepo.Quiz().ReplaceClasses(ctx, nil, quiz, classes); err != nil {
			return fmt.Errorf("failed to assign classes: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz transaction: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "creator_id", creatorID, "questions", len(req.Questions))

	return s.GetByIDWithDetails(ctx, quiz.ID, creatorID)
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkViewable(ctx, quiz, user); err != nil {
		return nil, err
	}

	return s.buildQuizResponse(ctx, quiz, userID), nil
}

func (s *quizService) GetByIDWithDetails(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithDetails(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz with details: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkViewable(ctx, quiz, user); err != nil {
		return nil, err
	}

	// Students get the full question set mid-attempt, but the answer key
	// only after their own submission is finalized.
	if user.Role == models.RoleStudent && !s.answerKeyVisible(ctx, quiz.ID, userID) {
		hideAnswerKey(quiz)
	}

	return s.buildQuizResponse(ctx, quiz, userID), nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", userID)

	if verrs := s.validator.GetBusinessValidator().ValidateQuizUpdate(req); len(verrs) > 0 {
		return nil, verrs
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.requireTeacher(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}
	if !s.canModify(quiz, user) {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not the quiz owner")
	}

	applyQuizUpdate(quiz, req)

	if req.Settings != nil {
		settings, err := marshalSettings(req.Settings)
		if err != nil {
			return nil, err
		}
		quiz.Settings = settings
	}

	var classes []models.Class
	if req.ClassIDs != nil {
		classes, err = s.ownedClasses(ctx, req.ClassIDs, user)
		if err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Quiz().Update(ctx, nil, quiz); err != nil {
			return fmt.Errorf("failed to update quiz: %w", err)
		}

		if req.Questions != nil {
			if err := s.reconcileQuestions(ctx, txRepo, quiz.ID, req.Questions); err != nil {
				return err
			}
		}

		if req.ClassIDs != nil {
			if err := txRepo.Quiz().ReplaceClasses(ctx, nil, quiz, classes); err != nil {
				return fmt.Errorf("failed to re-sync classes: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update quiz transaction: %w", err)
	}

	s.logger.Info("Quiz updated", "quiz_id", id, "user_id", userID)

	return s.GetByIDWithDetails(ctx, id, userID)
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.requireTeacher(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	if !s.canModify(quiz, user) {
		return NewPermissionError(userID, id, "quiz", "delete", "not the quiz owner")
	}

	_, total, err := s.repo.Submission().GetByQuiz(ctx, s.db, id, repositories.SubmissionFilters{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}
	if total > 0 {
		return ErrQuizHasSubmissions
	}

	if err := s.repo.Quiz().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted", "quiz_id", id, "user_id", userID)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, userID string) (*QuizListResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Admins see everything. Teachers see their own quizzes. Students see
	// only opened quizzes assigned to their class.
	switch user.Role {
	case models.RoleTeacher:
		filters.CreatedBy = &userID
	case models.RoleStudent:
		if user.ClassID == nil {
			return s.buildQuizListResponse(ctx, nil, 0, filters, userID), nil
		}
		filters.ClassID = user.ClassID
		now := time.Now()
		filters.OpenTo = &now
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, userID), nil
}

func (s *quizService) GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().GetByCreator(ctx, s.db, creatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get quizzes by creator: %w", err)
	}

	return s.buildQuizListResponse(ctx, quizzes, total, filters, creatorID), nil
}

// ===== CLASS ASSIGNMENT =====

func (s *quizService) AssignClasses(ctx context.Context, quizID uint, classIDs []uint, userID string) error {
	s.logger.Info("Assigning classes to quiz", "quiz_id", quizID, "class_ids", classIDs, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.requireTeacher(ctx, userID, quizID, "assign_classes")
	if err != nil {
		return err
	}
	if !s.canModify(quiz, user) {
		return NewPermissionError(userID, quizID, "quiz", "assign_classes", "not the quiz owner")
	}

	classes, err := s.ownedClasses(ctx, classIDs, user)
	if err != nil {
		return err
	}

	if err := s.repo.Quiz().ReplaceClasses(ctx, s.db, quiz, classes); err != nil {
		return fmt.Errorf("failed to assign classes: %w", err)
	}

	return nil
}

// ===== STATISTICS =====

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.requireTeacher(ctx, userID, id, "view_stats")
	if err != nil {
		return nil, err
	}
	if !s.canModify(quiz, user) {
		return nil, NewPermissionError(userID, id, "quiz", "view_stats", "not the quiz owner")
	}

	stats, err := s.repo.Quiz().GetStats(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}

// ===== PERMISSION CHECKS =====

func (s *quizService) CanEdit(ctx context.Context, quizID uint, userID string) (bool, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrQuizNotFound
		}
		return false, fmt.Errorf("failed to get quiz: %w", err)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	return s.canModify(quiz, user), nil
}

// ===== HELPERS =====

func (s *quizService) canModify(quiz *models.Quiz, user *models.User) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.Role == models.RoleTeacher && quiz.CreatedBy == user.ID
}

// checkViewable gates quiz reads. Owners and admins pass; students pass
// only for quizzes assigned to their class whose window has opened.
// Everyone else gets ErrQuizNotFound, so quizzes outside a caller's
// scope are indistinguishable from missing ones.
func (s *quizService) checkViewable(ctx context.Context, quiz *models.Quiz, user *models.User) error {
	if s.canModify(quiz, user) {
		return nil
	}

	if user.Role == models.RoleStudent && user.ClassID != nil {
		assigned, err := s.repo.Quiz().IsAssignedToClass(ctx, s.db, quiz.ID, *user.ClassID)
		if err != nil {
			return fmt.Errorf("failed to check class assignment: %w", err)
		}
		if assigned && quiz.IsOpen(time.Now()) {
			return nil
		}
	}

	return ErrQuizNotFound
}

// answerKeyVisible reports whether the student may see is_correct flags
// for the quiz: only once their own submission is finalized.
func (s *quizService) answerKeyVisible(ctx context.Context, quizID uint, studentID string) bool {
	sub, err := s.repo.Submission().GetByQuizAndStudent(ctx, s.db, quizID, studentID)
	return err == nil && sub.IsSubmitted()
}

// hideAnswerKey blanks is_correct on every option. It operates on the
// copy the repository returned for this request, never on stored rows.
func hideAnswerKey(quiz *models.Quiz) {
	for i := range quiz.Questions {
		for j := range quiz.Questions[i].Options {
			quiz.Questions[i].Options[j].IsCorrect = false
		}
	}
}

func (s *quizService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *quizService) requireTeacher(ctx context.Context, userID string, quizID uint, action string) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsTeacher() {
		return nil, NewPermissionError(userID, quizID, "quiz", action, "teacher role required")
	}
	return user, nil
}

// ownedClasses resolves classIDs and verifies each class belongs to the
// teacher (admins bypass the ownership check).
func (s *quizService) ownedClasses(ctx context.Context, classIDs []uint, user *models.User) ([]models.Class, error) {
	classes, err := s.repo.Class().GetByIDs(ctx, s.db, classIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get classes: %w", err)
	}
	if len(classes) != len(uniqueIDs(classIDs)) {
		return nil, ErrClassNotFound
	}

	if user.Role != models.RoleAdmin {
		for _, class := range classes {
			if class.TeacherID != user.ID {
				return nil, NewPermissionError(user.ID, class.ID, "class", "assign", "class belongs to another teacher")
			}
		}
	}

	return classes, nil
}

func marshalSettings(req *QuizSettingsRequest) (datatypes.JSON, error) {
	settings := models.QuizSettings{}
	if req != nil {
		if req.ShuffleQuestions != nil {
			settings.ShuffleQuestions = *req.ShuffleQuestions
		}
		if req.ShuffleOptions != nil {
			settings.ShuffleOptions = *req.ShuffleOptions
		}
		if req.ShowScore != nil {
			settings.ShowScore = *req.ShowScore
		}
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

func applyQuizUpdate(quiz *models.Quiz, req *UpdateQuizRequest) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.DurationMinutes != nil {
		quiz.DurationMinutes = *req.DurationMinutes
	}
	if req.OpenAt != nil {
		quiz.OpenAt = *req.OpenAt
	}
	if req.CloseAt != nil {
		quiz.CloseAt = *req.CloseAt
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
