package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/repository"
	"github.com/cirocosta/todos/internal/service"
)

// TodoHandler handles HTTP requests for todo operations
type TodoHandler struct {
	todoService TodoService
}

// NewTodoHandler creates a new todo handler with the given service
func NewTodoHandler(todoService TodoService) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
	}
}

// ListTodos handles GET /todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	sort, err := service.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	todos, err := h.todoService.List(r.Context(), service.ListOptions{Sort: sort})
	if err != nil {
		writeServiceError(w, err, "error listing todos")
		return
	}

	writeJSON(w, model.TodoListResponse{Todos: nonNil(todos)}, http.StatusOK)
}

// SearchTodos handles GET /todos/search
func (h *TodoHandler) SearchTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todoService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "error searching todos")
		return
	}

	writeJSON(w, model.TodoListResponse{Todos: nonNil(todos)}, http.StatusOK)
}

// GetTodo handles GET /todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todoService.GetTodo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "error getting todo")
		return
	}

	writeJSON(w, model.TodoResponse{Todo: todo}, http.StatusOK)
}

// CreateTodo handles POST /todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request format", http.StatusBadRequest)
		return
	}

	todo, err := h.todoService.CreateTodo(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "error creating todo")
		return
	}

	writeJSON(w, model.TodoResponse{Todo: todo}, http.StatusCreated)
}

// UpdateTodo handles PATCH /todos/{id}
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request format", http.StatusBadRequest)
		return
	}

	todo, err := h.todoService.UpdateTodo(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "error updating todo")
		return
	}

	writeJSON(w, model.TodoResponse{Todo: todo}, http.StatusOK)
}

// DeleteTodo handles DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.todoService.DeleteTodo(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "error deleting todo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateOrder handles PUT /todos/order. When some items fail the status
// reflects the failure and the message says how many were still written.
func (h *TodoHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request format", http.StatusBadRequest)
		return
	}

	updated, err := h.todoService.UpdateOrder(r.Context(), req.Items)
	if err != nil {
		status, message := classify(err, "error updating order")
		if status != http.StatusInternalServerError {
			message = err.Error()
		}
		writeError(w, fmt.Sprintf("updated %d of %d: %s", updated, len(req.Items), message), status)
		return
	}

	writeJSON(w, model.UpdateOrderResponse{Updated: updated}, http.StatusOK)
}

// ClearCompleted handles POST /todos/clear-completed
func (h *TodoHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed, err := h.todoService.ClearCompleted(r.Context())
	if err != nil {
		writeServiceError(w, err, "error clearing completed todos")
		return
	}

	writeJSON(w, model.ClearCompletedResponse{Removed: removed}, http.StatusOK)
}

// classify maps a service error to a status code and a client-facing
// message. Internal failures keep their details out of the response.
func classify(err error, fallback string) (int, string) {
	switch {
	case model.IsValidation(err):
		return http.StatusUnprocessableEntity, err.Error()
	case repository.IsNotFound(err):
		return http.StatusNotFound, "todo not found"
	default:
		return http.StatusInternalServerError, fallback
	}
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status, message := classify(err, fallback)
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
	}
	writeError(w, message, status)
}

func nonNil(todos []model.Todo) []model.Todo {
	if todos == nil {
		return []model.Todo{}
	}
	return todos
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, model.ErrorResponse{Error: message}, statusCode)
}
