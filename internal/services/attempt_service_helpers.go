package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== ANSWER VALIDATION =====

// validateAnswers turns the raw submitted pairs into storable Answer rows.
// Three failure classes, handled differently:
//   - malformed input (missing questionId/optionId) -> ValidationErrors
//   - an ID that exists nowhere in the system -> ValidationErrors
//   - an ID that exists but does not belong to this quiz, or an option
//     that belongs to a different question -> dropped silently
//
// An empty or absent answers list is valid and scores zero.
func (s *attemptService) validateAnswers(ctx context.Context, submissionID uint, questions []*models.Question, inputs []AnswerInput) ([]models.Answer, error) {
	var verrs ValidationErrors

	for i, input := range inputs {
		if input.QuestionID == nil {
			verrs = append(verrs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].questionId", i),
				Message: "questionId is required",
				Rule:    "required",
			})
		}
		if input.OptionID == nil {
			verrs = append(verrs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].optionId", i),
				Message: "optionId is required",
				Rule:    "required",
			})
		}
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	questionByID := make(map[uint]bool, len(questions))
	optionOwner := make(map[uint]uint)
	for _, q := range questions {
		questionByID[q.ID] = true
		for _, opt := range q.Options {
			optionOwner[opt.ID] = q.ID
		}
	}

	// Collect the IDs that are not part of this quiz so their global
	// existence can be checked in one batch each.
	var unknownQuestions, unknownOptions []uint
	for _, input := range inputs {
		if !questionByID[*input.QuestionID] {
			unknownQuestions = append(unknownQuestions, *input.QuestionID)
		}
		if _, ok := optionOwner[*input.OptionID]; !ok {
			unknownOptions = append(unknownOptions, *input.OptionID)
		}
	}

	existingQuestions, err := s.repo.Question().ExistingQuestionIDs(ctx, s.db, unknownQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to check question existence: %w", err)
	}
	existingOptions, err := s.repo.Question().ExistingOptionIDs(ctx, s.db, unknownOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to check option existence: %w", err)
	}

	seen := make(map[[2]uint]bool, len(inputs))
	answers := make([]models.Answer, 0, len(inputs))

	for i, input := range inputs {
		questionID, optionID := *input.QuestionID, *input.OptionID

		pair := [2]uint{questionID, optionID}
		if seen[pair] {
			continue
		}
		seen[pair] = true

		inQuiz := questionByID[questionID]
		owner, optionInQuiz := optionOwner[optionID]

		if !inQuiz && !existingQuestions[questionID] {
			verrs = append(verrs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].questionId", i),
				Message: fmt.Sprintf("question %d does not exist", questionID),
				Value:   questionID,
				Rule:    "exists",
			})
		}
		if !optionInQuiz && !existingOptions[optionID] {
			verrs = append(verrs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].optionId", i),
				Message: fmt.Sprintf("option %d does not exist", optionID),
				Value:   optionID,
				Rule:    "exists",
			})
		}
		if !inQuiz || !optionInQuiz || owner != questionID {
			// Real IDs that reference the wrong quiz or question are
			// dropped without failing the submission.
			if inQuiz || optionInQuiz || (existingQuestions[questionID] && existingOptions[optionID]) {
				s.logger.Debug("Dropping answer outside quiz scope",
					"submission_id", submissionID,
					"question_id", questionID,
					"option_id", optionID)
			}
			continue
		}

		answers = append(answers, models.Answer{
			SubmissionID: submissionID,
			QuestionID:   questionID,
			OptionID:     optionID,
		})
	}

	if len(verrs) > 0 {
		return nil, verrs
	}
	return answers, nil
}
