package api

import (
	"context"

	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/service"
)

// NopTodoService does nothing. It lets the router be built without a
// backend, which is all OpenAPI generation needs.
type NopTodoService struct{}

// NewNopTodoService creates a new no-op todo service
func NewNopTodoService() *NopTodoService {
	return &NopTodoService{}
}

func (s *NopTodoService) List(ctx context.Context, opts service.ListOptions) ([]model.Todo, error) {
	return nil, nil
}

func (s *NopTodoService) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	return model.Todo{}, nil
}

func (s *NopTodoService) CreateTodo(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error) {
	return model.Todo{}, nil
}

func (s *NopTodoService) UpdateTodo(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	return model.Todo{}, nil
}

func (s *NopTodoService) DeleteTodo(ctx context.Context, id string) error {
	return nil
}

func (s *NopTodoService) UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error) {
	return 0, nil
}

func (s *NopTodoService) ClearCompleted(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *NopTodoService) Search(ctx context.Context, term string) ([]model.Todo, error) {
	return nil, nil
}

// Subscribe yields a single empty snapshot and closes with ctx
func (s *NopTodoService) Subscribe(ctx context.Context) (<-chan []model.Todo, error) {
	out := make(chan []model.Todo, 1)
	out <- nil
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
