// package service implements business logic for the application
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cirocosta/todos/internal/filter"
	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/repository"
)

// errIDRequired is returned for operations addressed at an empty id
var errIDRequired = &model.ValidationError{Field: "id", Err: errors.New("todo id is required")}

// Notifier is told about every successful mutation
type Notifier interface {
	Notify()
}

// SortOrder selects how List orders its result
type SortOrder string

const (
	SortByCreated SortOrder = "created"
	SortByUpdated SortOrder = "updated"
	SortByOrder   SortOrder = "order"
)

// ParseSortOrder accepts created, updated or order. Empty means created.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortByCreated:
		return SortByCreated, nil
	case SortByUpdated:
		return SortByUpdated, nil
	case SortByOrder:
		return SortByOrder, nil
	default:
		return "", &model.ValidationError{
			Field: "sort",
			Err:   fmt.Errorf("unknown sort %q: want created, updated or order", value),
		}
	}
}

// ListOptions tunes List
type ListOptions struct {
	Sort SortOrder
}

// Option configures a TodoService
type Option func(*TodoService)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *TodoService) { s.now = now }
}

// WithIDGenerator overrides how new ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(s *TodoService) { s.newID = newID }
}

// WithNotifier registers the receiver of change notifications
func WithNotifier(n Notifier) Option {
	return func(s *TodoService) { s.notifier = n }
}

// TodoService handles business logic for todo operations
type TodoService struct {
	repo     repository.TodoRepository
	now      func() time.Time
	newID    func() string
	notifier Notifier

	// createMu serializes order assignment on create
	createMu sync.Mutex
}

// NewTodoService creates a new todo service with the given repository
func NewTodoService(repo repository.TodoRepository, opts ...Option) *TodoService {
	s := &TodoService{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTodos returns all todos ordered by creation time
func (s *TodoService) ListTodos(ctx context.Context) ([]model.Todo, error) {
	return s.List(ctx, ListOptions{})
}

// List returns all todos in the requested order
func (s *TodoService) List(ctx context.Context, opts ListOptions) ([]model.Todo, error) {
	todos, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	SortTodos(todos, opts.Sort)
	return todos, nil
}

// SortTodos orders todos in place. Created order is what the repository
// returns, so it is left alone. Ties break by id.
func SortTodos(todos []model.Todo, order SortOrder) {
	switch order {
	case SortByUpdated:
		sort.SliceStable(todos, func(i, j int) bool {
			if !todos[i].UpdatedAt.Equal(todos[j].UpdatedAt) {
				return todos[i].UpdatedAt.Before(todos[j].UpdatedAt)
			}
			return todos[i].ID < todos[j].ID
		})
	case SortByOrder:
		sort.SliceStable(todos, func(i, j int) bool {
			if todos[i].Order != todos[j].Order {
				return todos[i].Order < todos[j].Order
			}
			return todos[i].ID < todos[j].ID
		})
	}
}

// GetTodo returns a todo by ID
func (s *TodoService) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	if id == "" {
		return model.Todo{}, errIDRequired
	}

	return s.repo.FindByID(ctx, id)
}

// CreateTodo creates a new todo placed after every existing one
func (s *TodoService) CreateTodo(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error) {
	title, err := model.NormalizeTitle(req.Title)
	if err != nil {
		return model.Todo{}, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	maxOrder, err := s.repo.MaxOrder(ctx)
	if err != nil {
		return model.Todo{}, fmt.Errorf("read max order: %w", err)
	}

	now := s.timestamp()
	todo := model.Todo{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Completed:   false,
		DueDate:     model.NormalizeDueDate(req.DueDate),
		Order:       maxOrder + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}

	s.notify()
	return created, nil
}

// UpdateTodo patches the provided fields of an existing todo
func (s *TodoService) UpdateTodo(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	if id == "" {
		return model.Todo{}, errIDRequired
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}

	if req.Title != nil {
		title, err := model.NormalizeTitle(*req.Title)
		if err != nil {
			return model.Todo{}, err
		}
		existing.Title = title
	}
	if req.Description != nil {
		existing.Description = strings.TrimSpace(*req.Description)
	}
	if req.Completed != nil {
		existing.Completed = *req.Completed
	}
	switch {
	case req.ClearDueDate:
		existing.DueDate = nil
	case req.DueDate != nil:
		existing.DueDate = model.NormalizeDueDate(req.DueDate)
	}

	existing.UpdatedAt = s.touch(existing.UpdatedAt)

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		return model.Todo{}, err
	}

	s.notify()
	return updated, nil
}

// DeleteTodo deletes a todo
func (s *TodoService) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return errIDRequired
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.notify()
	return nil
}

// UpdateOrder writes each item's order as an independent patch. Items that
// fail do not stop the rest; their errors are joined into the result.
func (s *TodoService) UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error) {
	var (
		updated int
		errs    []error
	)

	for _, item := range items {
		if err := s.patchOrder(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", item.ID, err))
			continue
		}
		updated++
	}

	if updated > 0 {
		s.notify()
	}
	return updated, errors.Join(errs...)
}

func (s *TodoService) patchOrder(ctx context.Context, item model.OrderItem) error {
	if item.ID == "" {
		return errIDRequired
	}

	existing, err := s.repo.FindByID(ctx, item.ID)
	if err != nil {
		return err
	}

	existing.Order = item.Order
	existing.UpdatedAt = s.touch(existing.UpdatedAt)

	_, err = s.repo.Update(ctx, item.ID, existing)
	return err
}

// ClearCompleted removes every completed todo and reports how many went
func (s *TodoService) ClearCompleted(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}

	if removed > 0 {
		s.notify()
	}
	return removed, nil
}

// Search returns the todos whose title or description contains term
func (s *TodoService) Search(ctx context.Context, term string) ([]model.Todo, error) {
	todos, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("search todos: %w", err)
	}

	return filter.Apply(todos, term, filter.StatusAll), nil
}

func (s *TodoService) timestamp() time.Time {
	return s.now().Round(0).UTC()
}

// touch returns a fresh updatedAt that is strictly later than prev.
func (s *TodoService) touch(prev time.Time) time.Time {
	now := s.timestamp()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *TodoService) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}
