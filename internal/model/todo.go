// package model contains the data models shared by the server and the client
package model

import (
	"time"
)

// Todo represents a todo item in the system
type Todo struct {
	ID          string     `json:"id" doc:"Opaque identifier assigned by the server" example:"9b2f6c1e-3f55-4c38-9d55-1b8f0b1d6a10"`
	Title       string     `json:"title" doc:"Title of the todo item" example:"Buy milk"`
	Description string     `json:"description" doc:"Detailed description of the todo item" example:"Two litres, semi-skimmed"`
	Completed   bool       `json:"completed" doc:"Whether the todo item is completed" example:"false"`
	DueDate     *time.Time `json:"dueDate,omitempty" doc:"Due date, midnight UTC of the selected calendar day" example:"2024-03-05T00:00:00Z"`
	Order       int64      `json:"order" doc:"Manual sort position" example:"3"`
	CreatedAt   time.Time  `json:"createdAt" doc:"When the todo item was created" example:"2024-03-01T12:00:00Z"`
	UpdatedAt   time.Time  `json:"updatedAt" doc:"When the todo item was last changed" example:"2024-03-02T12:00:00Z"`
}

// CreateTodoRequest is used when creating a new todo item
type CreateTodoRequest struct {
	Title       string     `json:"title" doc:"Title of the todo item" example:"Buy milk"`
	Description string     `json:"description,omitempty" doc:"Detailed description of the todo item" example:"Two litres, semi-skimmed"`
	DueDate     *time.Time `json:"dueDate,omitempty" doc:"Optional due date" example:"2024-03-05T00:00:00Z"`
}

// UpdateTodoRequest patches an existing todo item. Nil fields are left untouched.
type UpdateTodoRequest struct {
	Title        *string    `json:"title,omitempty" doc:"New title" example:"Buy oat milk"`
	Description  *string    `json:"description,omitempty" doc:"New description" example:"One litre"`
	Completed    *bool      `json:"completed,omitempty" doc:"New completion state" example:"true"`
	DueDate      *time.Time `json:"dueDate,omitempty" doc:"New due date" example:"2024-03-06T00:00:00Z"`
	ClearDueDate bool       `json:"clearDueDate,omitempty" doc:"Remove the due date" example:"false"`
}

// Empty reports whether the request carries no field to patch.
func (r UpdateTodoRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil && r.DueDate == nil && !r.ClearDueDate
}

// OrderItem assigns a manual sort position to one todo item
type OrderItem struct {
	ID    string `json:"id" doc:"Todo identifier" example:"9b2f6c1e-3f55-4c38-9d55-1b8f0b1d6a10"`
	Order int64  `json:"order" doc:"New sort position" example:"0"`
}

// UpdateOrderRequest rewrites the sort position of the listed items
type UpdateOrderRequest struct {
	Items []OrderItem `json:"items" doc:"Items with their new positions"`
}

// UpdateOrderResponse reports how many items were patched
type UpdateOrderResponse struct {
	Updated int `json:"updated" doc:"Number of items whose order was written" example:"3"`
}

// ClearCompletedResponse reports how many completed items were removed
type ClearCompletedResponse struct {
	Removed int `json:"removed" doc:"Number of completed items removed" example:"2"`
}

// TodoResponse is used for responses with a single todo item
type TodoResponse struct {
	Todo Todo `json:"todo" doc:"A todo item"`
}

// TodoListResponse is used for responses with multiple todo items
type TodoListResponse struct {
	Todos []Todo `json:"todos" doc:"List of todo items"`
}

// ErrorResponse represents an error returned by the API
type ErrorResponse struct {
	Error string `json:"error" doc:"Error message" example:"todo not found"`
}

// OrderItems turns a display sequence into dense 0-based order assignments.
func OrderItems(sequence []Todo) []OrderItem {
	items := make([]OrderItem, 0, len(sequence))
	for i, todo := range sequence {
		items = append(items, OrderItem{ID: todo.ID, Order: int64(i)})
	}
	return items
}
