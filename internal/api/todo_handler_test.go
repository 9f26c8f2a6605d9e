package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/repository"
	"github.com/cirocosta/todos/internal/service"
)

// mockTodoService is a mock implementation of TodoService
type mockTodoService struct {
	mock.Mock
}

func (m *mockTodoService) List(ctx context.Context, opts service.ListOptions) ([]model.Todo, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).([]model.Todo), args.Error(1)
}

func (m *mockTodoService) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoService) CreateTodo(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoService) UpdateTodo(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoService) DeleteTodo(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTodoService) UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error) {
	args := m.Called(ctx, items)
	return args.Int(0), args.Error(1)
}

func (m *mockTodoService) ClearCompleted(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockTodoService) Search(ctx context.Context, term string) ([]model.Todo, error) {
	args := m.Called(ctx, term)
	return args.Get(0).([]model.Todo), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	return errResp.Error
}

func titleRequired() error {
	_, err := model.NormalizeTitle(" ")
	return err
}

func TestListTodos(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		query        string
		setupMock    func(m *mockTodoService)
		wantStatus   int
		wantResponse model.TodoListResponse
		wantErr      string
	}{
		"success": {
			setupMock: func(m *mockTodoService) {
				todos := []model.Todo{
					{ID: "1", Title: "Todo 1", Completed: false},
					{ID: "2", Title: "Todo 2", Completed: true},
				}
				m.On("List", mock.Anything, service.ListOptions{Sort: service.SortByCreated}).Return(todos, nil)
			},
			wantStatus: http.StatusOK,
			wantResponse: model.TodoListResponse{
				Todos: []model.Todo{
					{ID: "1", Title: "Todo 1", Completed: false},
					{ID: "2", Title: "Todo 2", Completed: true},
				},
			},
		},
		"empty list encodes as array": {
			setupMock: func(m *mockTodoService) {
				m.On("List", mock.Anything, mock.Anything).Return([]model.Todo(nil), nil)
			},
			wantStatus:   http.StatusOK,
			wantResponse: model.TodoListResponse{Todos: []model.Todo{}},
		},
		"sort by order": {
			query: "?sort=order",
			setupMock: func(m *mockTodoService) {
				m.On("List", mock.Anything, service.ListOptions{Sort: service.SortByOrder}).
					Return([]model.Todo{{ID: "3", Order: 0}}, nil)
			},
			wantStatus:   http.StatusOK,
			wantResponse: model.TodoListResponse{Todos: []model.Todo{{ID: "3", Order: 0}}},
		},
		"unknown sort": {
			query:      "?sort=random",
			setupMock:  func(m *mockTodoService) {},
			wantStatus: http.StatusBadRequest,
			wantErr:    `unknown sort "random": want created, updated or order`,
		},
		"service error": {
			setupMock: func(m *mockTodoService) {
				m.On("List", mock.Anything, mock.Anything).Return([]model.Todo{}, errors.New("database error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "error listing todos",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			tc.setupMock(mockService)

			handler := NewTodoHandler(mockService)
			rec := httptest.NewRecorder()
			handler.ListTodos(rec, httptest.NewRequest(http.MethodGet, "/todos"+tc.query, nil))

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
				return
			}

			assert.NotContains(t, rec.Body.String(), "null")

			var gotResp model.TodoListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotResp))

			if diff := cmp.Diff(tc.wantResponse, gotResp); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetTodo(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		todoID     string
		setupMock  func(m *mockTodoService)
		wantStatus int
		wantTodo   model.Todo
		wantErr    string
	}{
		"success": {
			todoID: "123",
			setupMock: func(m *mockTodoService) {
				todo := model.Todo{ID: "123", Title: "Test Todo", Completed: false}
				m.On("GetTodo", mock.Anything, "123").Return(todo, nil)
			},
			wantStatus: http.StatusOK,
			wantTodo:   model.Todo{ID: "123", Title: "Test Todo", Completed: false},
		},
		"not found": {
			todoID: "999",
			setupMock: func(m *mockTodoService) {
				m.On("GetTodo", mock.Anything, "999").Return(model.Todo{}, repository.ErrTodoNotFound{ID: "999"})
			},
			wantStatus: http.StatusNotFound,
			wantErr:    "todo not found",
		},
		"service error": {
			todoID: "123",
			setupMock: func(m *mockTodoService) {
				m.On("GetTodo", mock.Anything, "123").Return(model.Todo{}, errors.New("database error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "error getting todo",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			tc.setupMock(mockService)

			handler := NewTodoHandler(mockService)

			req := httptest.NewRequest(http.MethodGet, "/todos/"+tc.todoID, nil)
			req.SetPathValue("id", tc.todoID)
			rec := httptest.NewRecorder()

			handler.GetTodo(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
				return
			}

			var gotResp model.TodoResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotResp))

			if diff := cmp.Diff(tc.wantTodo, gotResp.Todo); diff != "" {
				t.Errorf("todo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateTodo(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		body       string
		setupMock  func(m *mockTodoService)
		wantStatus int
		wantTodo   model.Todo
		wantErr    string
	}{
		"success": {
			body: `{"title":"Buy milk","description":"semi-skimmed"}`,
			setupMock: func(m *mockTodoService) {
				req := model.CreateTodoRequest{Title: "Buy milk", Description: "semi-skimmed"}
				m.On("CreateTodo", mock.Anything, req).Return(model.Todo{ID: "1", Title: "Buy milk", Order: 1}, nil)
			},
			wantStatus: http.StatusCreated,
			wantTodo:   model.Todo{ID: "1", Title: "Buy milk", Order: 1},
		},
		"invalid json": {
			body:       `{"title":`,
			setupMock:  func(m *mockTodoService) {},
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request format",
		},
		"validation error": {
			body: `{"title":"   "}`,
			setupMock: func(m *mockTodoService) {
				m.On("CreateTodo", mock.Anything, mock.Anything).Return(model.Todo{}, titleRequired())
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantErr:    "title is required",
		},
		"service error": {
			body: `{"title":"Buy milk"}`,
			setupMock: func(m *mockTodoService) {
				m.On("CreateTodo", mock.Anything, mock.Anything).Return(model.Todo{}, errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "error creating todo",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			tc.setupMock(mockService)

			handler := NewTodoHandler(mockService)
			rec := httptest.NewRecorder()
			handler.CreateTodo(rec, httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(tc.body)))

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
				return
			}

			var gotResp model.TodoResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotResp))

			if diff := cmp.Diff(tc.wantTodo, gotResp.Todo); diff != "" {
				t.Errorf("todo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateTodo(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		body       string
		setupMock  func(m *mockTodoService)
		wantStatus int
		wantErr    string
	}{
		"toggle": {
			body: `{"completed":true}`,
			setupMock: func(m *mockTodoService) {
				m.On("UpdateTodo", mock.Anything, "7", model.UpdateTodoRequest{Completed: ptr(true)}).
					Return(model.Todo{ID: "7", Completed: true}, nil)
			},
			wantStatus: http.StatusOK,
		},
		"clear due date": {
			body: `{"clearDueDate":true}`,
			setupMock: func(m *mockTodoService) {
				m.On("UpdateTodo", mock.Anything, "7", model.UpdateTodoRequest{ClearDueDate: true}).
					Return(model.Todo{ID: "7"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		"invalid json": {
			body:       `not json`,
			setupMock:  func(m *mockTodoService) {},
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request format",
		},
		"not found": {
			body: `{"completed":true}`,
			setupMock: func(m *mockTodoService) {
				m.On("UpdateTodo", mock.Anything, "7", mock.Anything).
					Return(model.Todo{}, repository.ErrTodoNotFound{ID: "7"})
			},
			wantStatus: http.StatusNotFound,
			wantErr:    "todo not found",
		},
		"empty title": {
			body: `{"title":""}`,
			setupMock: func(m *mockTodoService) {
				m.On("UpdateTodo", mock.Anything, "7", mock.Anything).Return(model.Todo{}, titleRequired())
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantErr:    "title is required",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			tc.setupMock(mockService)

			handler := NewTodoHandler(mockService)
			req := httptest.NewRequest(http.MethodPatch, "/todos/7", strings.NewReader(tc.body))
			req.SetPathValue("id", "7")
			rec := httptest.NewRecorder()

			handler.UpdateTodo(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
			}
		})
	}
}

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		err        error
		wantStatus int
	}{
		"success":       {err: nil, wantStatus: http.StatusNoContent},
		"not found":     {err: repository.ErrTodoNotFound{ID: "7"}, wantStatus: http.StatusNotFound},
		"service error": {err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			mockService.On("DeleteTodo", mock.Anything, "7").Return(tc.err)

			handler := NewTodoHandler(mockService)
			req := httptest.NewRequest(http.MethodDelete, "/todos/7", nil)
			req.SetPathValue("id", "7")
			rec := httptest.NewRecorder()

			handler.DeleteTodo(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestUpdateOrder(t *testing.T) {
	t.Parallel()

	items := []model.OrderItem{{ID: "c", Order: 0}, {ID: "ghost", Order: 1}, {ID: "b", Order: 2}}
	body := `{"items":[{"id":"c","order":0},{"id":"ghost","order":1},{"id":"b","order":2}]}`

	for name, tc := range map[string]struct {
		updated    int
		err        error
		wantStatus int
		wantErr    string
	}{
		"success": {
			updated:    3,
			wantStatus: http.StatusOK,
		},
		"partial failure": {
			updated:    2,
			err:        errors.Join(fmt.Errorf("order ghost: %w", repository.ErrTodoNotFound{ID: "ghost"})),
			wantStatus: http.StatusNotFound,
			wantErr:    "updated 2 of 3: order ghost: todo with id ghost not found",
		},
		"internal failure": {
			updated:    0,
			err:        errors.New("database locked"),
			wantStatus: http.StatusInternalServerError,
			wantErr:    "updated 0 of 3: error updating order",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mockService := new(mockTodoService)
			mockService.On("UpdateOrder", mock.Anything, items).Return(tc.updated, tc.err)

			handler := NewTodoHandler(mockService)
			rec := httptest.NewRecorder()
			handler.UpdateOrder(rec, httptest.NewRequest(http.MethodPut, "/todos/order", strings.NewReader(body)))

			assert.Equal(t, tc.wantStatus, rec.Code)
			mockService.AssertExpectations(t)

			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
				return
			}

			var gotResp model.UpdateOrderResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotResp))
			assert.Equal(t, tc.updated, gotResp.Updated)
		})
	}
}

func TestClearCompletedAndSearch(t *testing.T) {
	t.Parallel()

	mockService := new(mockTodoService)
	mockService.On("ClearCompleted", mock.Anything).Return(2, nil)
	mockService.On("Search", mock.Anything, "milk").Return([]model.Todo{{ID: "1", Title: "Buy milk"}}, nil)

	handler := NewTodoHandler(mockService)

	rec := httptest.NewRecorder()
	handler.ClearCompleted(rec, httptest.NewRequest(http.MethodPost, "/todos/clear-completed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.SearchTodos(rec, httptest.NewRequest(http.MethodGet, "/todos/search?q=milk", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var gotResp model.TodoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotResp))
	assert.Equal(t, []model.Todo{{ID: "1", Title: "Buy milk"}}, gotResp.Todos)

	mockService.AssertExpectations(t)
}
