// Package validation wraps go-playground/validator for the draft types submitted by client commands.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError names one failed rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e FieldError) String() string {
	if e.Param == "" {
		return fmt.Sprintf("%s:%s", e.Field, e.Rule)
	}
	return fmt.Sprintf("%s:%s=%s", e.Field, e.Rule, e.Param)
}

// Error lists every rule a value violated.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.String())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field failed any rule.
func (e *Error) Has(field string) bool {
	for _, failed := range e.Fields {
		if failed.Field == field {
			return true
		}
	}
	return false
}

// Struct validates value against its `validate` tags.
func Struct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	result := &Error{Fields: make([]FieldError, 0, len(fieldErrors))}
	for _, fieldError := range fieldErrors {
		result.Fields = append(result.Fields, FieldError{
			Field: fieldError.Field(),
			Rule:  fieldError.Tag(),
			Param: fieldError.Param(),
		})
	}
	return result
}
