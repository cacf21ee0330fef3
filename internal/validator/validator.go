package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validation with the service's rules
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents one failed field rule
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

// New creates a validator with the enrollment rules registered
func New() *Validator {
	validate := validator.New()

	// report json names so clients see the fields they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

// Validate returns nil when s satisfies its validate tags
func (v *Validator) Validate(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("enrollment_status", func(fl validator.FieldLevel) bool {
		switch models.EnrollmentStatus(fl.Field().String()) {
		case models.EnrollmentInProgress, models.EnrollmentCompleted, models.EnrollmentCancelled:
			return true
		}
		return false
	})
}

// ToValidationErrors converts validator output into field errors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// errorMessage returns user-friendly error messages
func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "enrollment_status":
		return "must be IN_PROGRESS, COMPLETED, or CANCELLED"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
