package validator

import (
	"strings"

	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// ValidationErrors represents a collection of validation errors.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   any    `json:"value,omitempty"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, fe := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Message)
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (v *ValidationErrors) First() string {
	if !v.HasErrors() {
		return ""
	}
	return v.Errors[0].Message
}

// ForField returns all error messages for a specific field.
func (v *ValidationErrors) ForField(field string) []string {
	if v == nil {
		return nil
	}
	var messages []string
	for _, fe := range v.Errors {
		if fe.Field == field {
			messages = append(messages, fe.Message)
		}
	}
	return messages
}

// ToErrno converts the errors into an ErrValidationFailed errno carrying the
// translated messages.
func (v *ValidationErrors) ToErrno() *errors.Errno {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(v.Errors))
	for _, fe := range v.Errors {
		msgs = append(msgs, fe.Message)
	}
	return errors.ErrValidationFailed.WithMessage(strings.Join(msgs, "; ")).WithCause(v)
}
