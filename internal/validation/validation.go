// Package validation wraps go-playground/validator with the poster rules and user-facing messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/snappy-loop/poster/internal/models"
)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validator *validator.Validate
}

// New creates a validator with the "grade" rule registered and JSON field names in messages.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		return models.GradeLevel(fl.Field().String()).Valid()
	})

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate validates a struct and returns a *ValidationError listing each failed field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return NewValidationError(errs)
	}
	return err
}

// ValidationError maps field names to readable messages.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := e.Fields()
	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, e.Errors[field])
	}
	return "validation failed: " + strings.Join(messages, ", ")
}

// Fields returns the failed field names in sorted order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case "grade":
			out[field] = fmt.Sprintf("%s must be one of %s", field, gradeList())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &ValidationError{Errors: out}
}

func gradeList() string {
	levels := models.GradeLevels()
	names := make([]string, 0, len(levels))
	for _, g := range levels {
		names = append(names, string(g))
	}
	return strings.Join(names, " / ")
}
