package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// BusinessValidator layers quiz-domain rules on top of struct tag
// validation: window ordering and question/option shape checks that
// tags alone cannot express.
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	bv := &BusinessValidator{validate: validator.New()}
	bv.registerRules()
	return bv
}

func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (bv *BusinessValidator) ValidateQuizCreate(req *QuizCreateRequest) ValidationErrors {
	errs := bv.Validate(req)
	errs = append(errs, checkQuizWindow(req.OpenAt, req.CloseAt)...)
	errs = append(errs, checkQuestions(req.Questions)...)
	return errs
}

func (bv *BusinessValidator) ValidateQuizUpdate(req *QuizUpdateRequest) ValidationErrors {
	errs := bv.Validate(req)
	if req.OpenAt != nil && req.CloseAt != nil {
		errs = append(errs, checkQuizWindow(*req.OpenAt, *req.CloseAt)...)
	}
	if req.Questions != nil {
		errs = append(errs, checkQuestions(req.Questions)...)
	}
	return errs
}

func checkQuizWindow(openAt, closeAt time.Time) ValidationErrors {
	if closeAt.After(openAt) {
		return nil
	}
	return ValidationErrors{{
		Field:   "close_at",
		Message: "must be after open_at",
		Value:   closeAt,
		Rule:    "business_logic",
	}}
}

func checkQuestions(questions []QuestionRequest) ValidationErrors {
	var errs ValidationErrors

	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].text", i),
				Message: "question text cannot be empty",
				Rule:    "business_logic",
			})
		}
		if len(q.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Message: "question must have at least 2 options",
				Value:   len(q.Options),
				Rule:    "business_logic",
			})
		}

		hasCorrect := false
		for j, opt := range q.Options {
			if strings.TrimSpace(opt.Text) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("questions[%d].options[%d].text", i, j),
					Message: "option text cannot be empty",
					Rule:    "business_logic",
				})
			}
			hasCorrect = hasCorrect || opt.IsCorrect
		}
		if len(q.Options) > 0 && !hasCorrect {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Message: "question must have at least one correct option",
				Rule:    "business_logic",
			})
		}
	}

	return errs
}

func (bv *BusinessValidator) registerRules() {
	bv.validate.RegisterValidation("quiz_duration", func(fl validator.FieldLevel) bool {
		minutes := fl.Field().Int()
		return minutes >= 1 && minutes <= 180
	})

	bv.validate.RegisterValidation("quiz_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	bv.validate.RegisterValidation("quiz_description", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 1000
	})
}
