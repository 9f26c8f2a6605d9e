// package filter narrows todo lists by completion status and free text
package filter

import (
	"fmt"
	"strings"

	"github.com/cirocosta/todos/internal/model"
)

// Status selects todos by completion state
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts all, active or completed (case-insensitive). Empty means all.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q: want all, active or completed", value)
	}
}

// Matches reports whether the todo passes the status filter
func (s Status) Matches(todo model.Todo) bool {
	switch s {
	case StatusActive:
		return !todo.Completed
	case StatusCompleted:
		return todo.Completed
	default:
		return true
	}
}

// MatchesQuery reports whether title or description contains query,
// ignoring case. An empty query matches everything.
func MatchesQuery(todo model.Todo, query string) bool {
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(todo.Title), needle) ||
		strings.Contains(strings.ToLower(todo.Description), needle)
}

// Apply keeps the todos that match both query and status, preserving order.
func Apply(todos []model.Todo, query string, status Status) []model.Todo {
	result := make([]model.Todo, 0, len(todos))
	for _, todo := range todos {
		if !status.Matches(todo) {
			continue
		}
		if !MatchesQuery(todo, query) {
			continue
		}
		result = append(result, todo)
	}
	return result
}

// CountActive returns the number of todos not yet completed.
func CountActive(todos []model.Todo) int {
	count := 0
	for _, todo := range todos {
		if !todo.Completed {
			count++
		}
	}
	return count
}
