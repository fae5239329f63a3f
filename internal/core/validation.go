package core

// validation.go defines how field validators report rejections.
//
// A validator rejects a value by returning a *ValidationError carrying one
// or more messages. Any other error is recorded under the field with its
// Error() text as the single message.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

// Validator checks one field. It receives the current value and the row
// being cleaned and returns the value to store in its place. The row must
// not be modified.
type Validator func(value any, row reader.Row) (any, error)

// ValidationError is a field rejection.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Reject returns a ValidationError with the given messages.
func Reject(msgs ...string) error {
	return &ValidationError{Messages: msgs}
}

// Rejectf returns a ValidationError with one formatted message.
func Rejectf(format string, args ...any) error {
	return &ValidationError{Messages: []string{fmt.Sprintf(format, args...)}}
}

// messagesOf extracts the messages to record for err.
func messagesOf(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Messages) > 0 {
		return verr.Messages
	}
	return []string{err.Error()}
}
