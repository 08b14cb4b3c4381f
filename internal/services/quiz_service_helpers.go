package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== QUESTION PERSISTENCE =====

func (s *quizService) createQuestion(ctx context.Context, txRepo repositories.Repository, quizID uint, req QuestionRequest, index int) error {
	question := &models.Question{
		QuizID:  quizID,
		Text:    req.Text,
		Order:   questionOrder(req.Order, index),
		Options: make([]models.Option, len(req.Options)),
	}
	for i, optReq := range req.Options {
		question.Options[i] = models.Option{
			Text:      optReq.Text,
			IsCorrect: optReq.IsCorrect,
			Order:     questionOrder(optReq.Order, i),
		}
	}

	if err := txRepo.Question().Create(ctx, nil, question); err != nil {
		return fmt.Errorf("failed to create question %d: %w", index, err)
	}
	return nil
}

// reconcileQuestions applies an update payload to the stored question set:
// questions carrying an ID are updated in place, questions without one are
// created, and stored questions absent from the payload are removed along
// with their options.
func (s *quizService) reconcileQuestions(ctx context.Context, txRepo repositories.Repository, quizID uint, reqs []QuestionRequest) error {
	keep := make([]uint, 0, len(reqs))
	for _, req := range reqs {
		if req.ID != nil {
			keep = append(keep, *req.ID)
		}
	}

	if err := txRepo.Question().DeleteExcept(ctx, nil, quizID, keep); err != nil {
		return fmt.Errorf("failed to remove dropped questions: %w", err)
	}

	for i, req := range reqs {
		if req.ID == nil {
			if err := s.createQuestion(ctx, txRepo, quizID, req, i); err != nil {
				return err
			}
			continue
		}

		question := &models.Question{
			ID:     *req.ID,
			QuizID: quizID,
			Text:   req.Text,
			Order:  questionOrder(req.Order, i),
		}
		if err := txRepo.Question().Update(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to update question %d: %w", *req.ID, err)
		}

		if err := s.reconcileOptions(ctx, txRepo, *req.ID, req.Options); err != nil {
			return err
		}
	}

	return nil
}

func (s *quizService) reconcileOptions(ctx context.Context, txRepo repositories.Repository, questionID uint, reqs []OptionRequest) error {
	keep := make([]uint, 0, len(reqs))
	for _, req := range reqs {
		if req.ID != nil {
			keep = append(keep, *req.ID)
		}
	}

	if err := txRepo.Question().DeleteOptionsExcept(ctx, nil, questionID, keep); err != nil {
		return fmt.Errorf("failed to remove dropped options: %w", err)
	}

	for i, req := range reqs {
		option := &models.Option{
			QuestionID: questionID,
			Text:       req.Text,
			IsCorrect:  req.IsCorrect,
			Order:      questionOrder(req.Order, i),
		}

		if req.ID == nil {
			if err := txRepo.Question().CreateOption(ctx, nil, option); err != nil {
				return fmt.Errorf("failed to create option: %w", err)
			}
			continue
		}

		option.ID = *req.ID
		if err := txRepo.Question().UpdateOption(ctx, nil, option); err != nil {
			return fmt.Errorf("failed to update option %d: %w", *req.ID, err)
		}
	}

	return nil
}

// questionOrder keeps explicit ordering when the payload provides it and
// falls back to payload position otherwise.
func questionOrder(requested, index int) int {
	if requested > 0 {
		return requested
	}
	return index
}

// ===== RESPONSE BUILDING =====

func (s *quizService) buildQuizResponse(ctx context.Context, quiz *models.Quiz, userID string) *QuizResponse {
	response := &QuizResponse{
		Quiz:          quiz,
		QuestionCount: len(quiz.Questions),
	}

	if response.QuestionCount == 0 {
		questions, err := s.repo.Question().GetByQuiz(ctx, s.db, quiz.ID)
		if err != nil {
			s.logger.Error("Failed to count quiz questions", "quiz_id", quiz.ID, "error", err)
		} else {
			response.QuestionCount = len(questions)
		}
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err == nil {
		response.CanEdit = s.canModify(quiz, user)
		response.CanDelete = response.CanEdit
	}

	return response
}

func (s *quizService) buildQuizListResponse(ctx context.Context, quizzes []*models.Quiz, total int64, filters repositories.QuizFilters, userID string) *QuizListResponse {
	responses := make([]*QuizResponse, len(quizzes))
	for i, quiz := range quizzes {
		responses[i] = s.buildQuizResponse(ctx, quiz, userID)
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &QuizListResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		Size:    filters.Limit,
	}
}
