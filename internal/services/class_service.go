package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type classService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewClassService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ClassService {
	return &classService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE OPERATIONS =====

func (s *classService) Create(ctx context.Context, req *CreateClassRequest, teacherID string) (*models.Class, error) {
	s.logger.Info("Creating class", "name", req.Name, "teacher_id", teacherID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	teacher, err := s.requireTeacher(ctx, teacherID, 0, "create")
	if err != nil {
		return nil, err
	}

	class := &models.Class{
		Name:      req.Name,
		TeacherID: teacher.ID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Class().Create(ctx, nil, class); err != nil {
			return fmt.Errorf("failed to create class: %w", err)
		}

		if len(req.StudentIDs) > 0 {
			if err := s.assignStudents(ctx, txRepo, class.ID, req.StudentIDs); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create class transaction: %w", err)
	}

	s.logger.Info("Class created", "class_id", class.ID, "teacher_id", teacherID)
	return class, nil
}

func (s *classService) GetByID(ctx context.Context, id uint, userID string) (*models.Class, error) {
	class, err := s.repo.Class().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	if err := s.checkAccess(ctx, class, userID, "read"); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *classService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting class", "class_id", id, "user_id", userID)

	class, err := s.repo.Class().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrClassNotFound
		}
		return fmt.Errorf("failed to get class: %w", err)
	}

	if err := s.checkAccess(ctx, class, userID, "delete"); err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Detach students before removing the class; their accounts stay.
		students, err := txRepo.Class().GetStudents(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to get class students: %w", err)
		}
		for _, student := range students {
			student.ClassID = nil
			if err := txRepo.User().Update(ctx, nil, student); err != nil {
				return fmt.Errorf("failed to detach student %s: %w", student.ID, err)
			}
		}

		if err := txRepo.Class().Delete(ctx, nil, id); err != nil {
			return fmt.Errorf("failed to delete class: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete class transaction: %w", err)
	}

	s.logger.Info("Class deleted", "class_id", id, "user_id", userID)
	return nil
}

// ===== ROSTER OPERATIONS =====

func (s *classService) GetByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error) {
	classes, err := s.repo.Class().GetByTeacher(ctx, s.db, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get classes by teacher: %w", err)
	}
	return classes, nil
}

func (s *classService) GetStudents(ctx context.Context, classID uint, userID string) ([]*models.User, error) {
	class, err := s.repo.Class().GetByID(ctx, s.db, classID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	if err := s.checkAccess(ctx, class, userID, "list_students"); err != nil {
		return nil, err
	}

	students, err := s.repo.Class().GetStudents(ctx, s.db, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to get class students: %w", err)
	}
	return students, nil
}

func (s *classService) AddStudents(ctx context.Context, classID uint, studentIDs []string, userID string) error {
	s.logger.Info("Adding students to class", "class_id", classID, "count", len(studentIDs), "user_id", userID)

	class, err := s.repo.Class().GetByID(ctx, s.db, classID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrClassNotFound
		}
		return fmt.Errorf("failed to get class: %w", err)
	}

	if err := s.checkAccess(ctx, class, userID, "add_students"); err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return s.assignStudents(ctx, txRepo, classID, studentIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to add students transaction: %w", err)
	}
	return nil
}

// ===== HELPERS =====

func (s *classService) assignStudents(ctx context.Context, txRepo repositories.Repository, classID uint, studentIDs []string) error {
	for _, studentID := range studentIDs {
		student, err := txRepo.User().GetByID(ctx, studentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get student %s: %w", studentID, err)
		}
		if !student.IsStudent() {
			return NewBusinessRuleError("class_roster", fmt.Sprintf("user %s is not a student", studentID))
		}

		student.ClassID = &classID
		if err := txRepo.User().Update(ctx, nil, student); err != nil {
			return fmt.Errorf("failed to assign student %s: %w", studentID, err)
		}
	}
	return nil
}

func (s *classService) requireTeacher(ctx context.Context, userID string, classID uint, action string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsTeacher() {
		return nil, NewPermissionError(userID, classID, "class", action, "teacher role required")
	}
	return user, nil
}

func (s *classService) checkAccess(ctx context.Context, class *models.Class, userID string, action string) error {
	user, err := s.requireTeacher(ctx, userID, class.ID, action)
	if err != nil {
		return err
	}
	if user.Role != models.RoleAdmin && class.TeacherID != user.ID {
		return NewPermissionError(userID, class.ID, "class", action, "class belongs to another teacher")
	}
	return nil
}
