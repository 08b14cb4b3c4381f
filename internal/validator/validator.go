package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps struct validation and business rule validation
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered
func New() *Validator {
	business := NewBusinessValidator()
	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate validates struct tags, returning ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator exposes the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts validator/v10 errors to ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			errors = append(errors, ValidationError{
				Field:   verr.Field(),
				Message: getErrorMessage(verr),
				Value:   verr.Value(),
				Rule:    verr.Tag(),
			})
		}
		return errors
	}

	return ValidationErrors{{
		Field:   "request",
		Message: err.Error(),
		Rule:    "struct",
	}}
}

// getErrorMessage returns a human-readable message for a failed rule
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "quiz_title":
		return "must be between 1 and 200 characters"
	case "quiz_duration":
		return "must be between 1 and 180 minutes"
	case "quiz_description":
		return "must be at most 1000 characters"
	default:
		return fmt.Sprintf("failed validation rule %s", err.Tag())
	}
}
