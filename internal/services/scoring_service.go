package services

import (
	"log/slog"
	"math"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

type scoringService struct {
	logger *slog.Logger
}

func NewScoringService(logger *slog.Logger) ScoringService {
	return &scoringService{logger: logger}
}

// Score awards one point per question answered with exactly one
// selected option that is the correct one. A question with zero or
// multiple selections scores zero, as does a selection of a wrong
// option. The total is the count of correctly answered questions,
// rounded to two decimals.
func (s *scoringService) Score(questions []*models.Question, answers []models.Answer) float64 {
	if len(questions) == 0 || len(answers) == 0 {
		return 0
	}

	// Group selections by question
	selected := make(map[uint][]uint, len(answers))
	for _, answer := range answers {
		selected[answer.QuestionID] = append(selected[answer.QuestionID], answer.OptionID)
	}

	correct := 0
	for _, question := range questions {
		options, ok := selected[question.ID]
		if !ok || len(options) != 1 {
			continue
		}

		for _, opt := range question.Options {
			if opt.ID == options[0] && opt.IsCorrect {
				correct++
				break
			}
		}
	}

	return round2(float64(correct))
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
