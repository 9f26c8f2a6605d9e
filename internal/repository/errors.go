// package repository provides data access and error types
package repository

import (
	"errors"
	"fmt"
)

// ErrTodoNotFound is returned when a todo with the specified ID does not exist
type ErrTodoNotFound struct {
	ID string
}

// Error implements the error interface
func (e ErrTodoNotFound) Error() string {
	return fmt.Sprintf("todo with id %s not found", e.ID)
}

// IsNotFound reports whether err, or anything it wraps, is an ErrTodoNotFound
func IsNotFound(err error) bool {
	var notFound ErrTodoNotFound
	return errors.As(err, &notFound)
}
