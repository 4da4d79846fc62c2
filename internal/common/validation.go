package common

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/production-tracker/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Kind    error // sentinel the failure matches; ErrValidation when nil
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrValidation
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Err joins every collected failure; errors.Is matches each failure's Kind.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	errs := make([]error, len(v.errors))
	for i, e := range v.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required", Kind: ErrInvalidInput}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required", Kind: ErrInvalidInput}
		}
	case []byte:
		if len(v) == 0 {
			return &ValidationError{Field: fieldName, Value: "<empty>", Message: "is required", Kind: ErrInvalidInput}
		}
	}
	return nil
}

// MaxLength limits a string to max characters.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
				Kind:    ErrInvalidInput,
			}
		}
		return nil
	}
}

// WorkbookFilename accepts file names with a spreadsheet extension.
func WorkbookFilename(fieldName string, value any) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string", Kind: ErrInvalidInput}
	}
	if !constants.AllowedExt(filepath.Ext(strings.TrimSpace(str))) {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must end in .xlsx, .xlsm, .xltx or .xls",
			Kind:    ErrUnsupportedFile,
		}
	}
	return nil
}

// MaxBytes limits a payload to limit bytes. The value may be a []byte or its length.
func MaxBytes(limit int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		var n int
		switch v := value.(type) {
		case []byte:
			n = len(v)
		case int:
			n = v
		default:
			return nil
		}
		if limit > 0 && n > limit {
			return &ValidationError{
				Field:   fieldName,
				Value:   n,
				Message: fmt.Sprintf("must be at most %d bytes", limit),
				Kind:    ErrUploadTooLarge,
			}
		}
		return nil
	}
}
