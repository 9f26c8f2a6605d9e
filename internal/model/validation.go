package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTitleRequired is returned when a title is empty after trimming.
var ErrTitleRequired = errors.New("title is required")

// DueDateLayout is the calendar-day layout accepted from users.
const DueDateLayout = "2006-01-02"

// ValidationError wraps a validation failure with the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// NormalizeTitle trims the title and rejects it when nothing is left.
func NormalizeTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Field: "title", Err: ErrTitleRequired}
	}
	return trimmed, nil
}

// NormalizeDueDate maps t to midnight UTC of the calendar day t falls on in
// its own location. A nil input stays nil.
func NormalizeDueDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	normalized := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &normalized
}

// ParseDueDate parses a YYYY-MM-DD calendar day into a normalized due date.
// An empty value yields nil.
func ParseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DueDateLayout, value)
	if err != nil {
		return nil, &ValidationError{Field: "dueDate", Err: fmt.Errorf("invalid due date %q: want %s", value, DueDateLayout)}
	}
	return NormalizeDueDate(&parsed), nil
}

// FormatDueDate renders a due date as a calendar day, or "" when unset.
func FormatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DueDateLayout)
}
