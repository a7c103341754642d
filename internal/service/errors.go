package service

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when the referenced account does not exist.
var ErrUserNotFound = errors.New("user not found")

// ValidationError 表示客户端输入不合法，对应 HTTP 400。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
