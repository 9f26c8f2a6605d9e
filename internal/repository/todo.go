// package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/cirocosta/todos/internal/model"
)

// TodoRepository defines the interface for todo data access
type TodoRepository interface {
	// FindAll returns all todos ordered by creation time
	FindAll(ctx context.Context) ([]model.Todo, error)

	// FindByID returns a specific todo by ID
	FindByID(ctx context.Context, id string) (model.Todo, error)

	// Create adds a new todo
	Create(ctx context.Context, todo model.Todo) (model.Todo, error)

	// Update replaces an existing todo
	Update(ctx context.Context, id string, todo model.Todo) (model.Todo, error)

	// Delete removes a todo
	Delete(ctx context.Context, id string) error

	// DeleteCompleted removes every completed todo and returns how many went
	DeleteCompleted(ctx context.Context) (int, error)

	// MaxOrder returns the largest order value, or 0 when there are no todos
	MaxOrder(ctx context.Context) (int64, error)
}

// InMemoryTodoRepository implements TodoRepository with an in-memory map
type InMemoryTodoRepository struct {
	todos map[string]model.Todo
	mutex sync.RWMutex
}

// NewInMemoryTodoRepository creates a new empty in-memory todo repository
func NewInMemoryTodoRepository() *InMemoryTodoRepository {
	return &InMemoryTodoRepository{
		todos: make(map[string]model.Todo),
	}
}

// FindAll returns all todos ordered by creation time
func (r *InMemoryTodoRepository) FindAll(ctx context.Context) ([]model.Todo, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	todos := make([]model.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		todos = append(todos, cloneTodo(todo))
	}
	SortByCreated(todos)

	return todos, nil
}

// FindByID returns a specific todo by ID
func (r *InMemoryTodoRepository) FindByID(ctx context.Context, id string) (model.Todo, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	todo, exists := r.todos[id]
	if !exists {
		return model.Todo{}, ErrTodoNotFound{ID: id}
	}

	return cloneTodo(todo), nil
}

// Create adds a new todo
func (r *InMemoryTodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.todos[todo.ID] = cloneTodo(todo)
	return todo, nil
}

// Update replaces an existing todo
func (r *InMemoryTodoRepository) Update(ctx context.Context, id string, todo model.Todo) (model.Todo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.todos[id]; !exists {
		return model.Todo{}, ErrTodoNotFound{ID: id}
	}

	// ensure ID doesn't change
	todo.ID = id
	r.todos[id] = cloneTodo(todo)

	return todo, nil
}

// Delete removes a todo
func (r *InMemoryTodoRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.todos[id]; !exists {
		return ErrTodoNotFound{ID: id}
	}

	delete(r.todos, id)
	return nil
}

// DeleteCompleted removes every completed todo
func (r *InMemoryTodoRepository) DeleteCompleted(ctx context.Context) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	for id, todo := range r.todos {
		if todo.Completed {
			delete(r.todos, id)
			removed++
		}
	}
	return removed, nil
}

// MaxOrder returns the largest order value currently stored
func (r *InMemoryTodoRepository) MaxOrder(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var max int64
	first := true
	for _, todo := range r.todos {
		if first || todo.Order > max {
			max = todo.Order
			first = false
		}
	}
	return max, nil
}

// SortByCreated orders todos by creation time, breaking ties by id.
func SortByCreated(todos []model.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.Before(todos[j].CreatedAt)
		}
		return todos[i].ID < todos[j].ID
	})
}

func cloneTodo(todo model.Todo) model.Todo {
	if todo.DueDate != nil {
		due := *todo.DueDate
		todo.DueDate = &due
	}
	return todo
}
