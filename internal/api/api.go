// package api provides the HTTP API for the application
package api

import (
	"context"
	"net/http"

	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/service"
	"github.com/cirocosta/todos/pkg/router"
)

// TodoService defines the operations the API exposes
type TodoService interface {
	// List returns all todos in the requested order
	List(ctx context.Context, opts service.ListOptions) ([]model.Todo, error)

	// GetTodo returns a todo by ID
	GetTodo(ctx context.Context, id string) (model.Todo, error)

	// CreateTodo creates a new todo
	CreateTodo(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error)

	// UpdateTodo patches an existing todo
	UpdateTodo(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error)

	// DeleteTodo deletes a todo
	DeleteTodo(ctx context.Context, id string) error

	// UpdateOrder rewrites the order of the given todos
	UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error)

	// ClearCompleted removes every completed todo
	ClearCompleted(ctx context.Context) (int, error)

	// Search returns todos whose title or description match the term
	Search(ctx context.Context, term string) ([]model.Todo, error)
}

// Subscriber streams full snapshots of the todo list
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan []model.Todo, error)
}

// HealthResponse is returned by the health check endpoint
type HealthResponse struct {
	Status string `json:"status" doc:"Health status" example:"ok"`
}

// Option configures the router built by NewRouter
type Option func(*options)

type options struct {
	token   string
	servers []router.Server
}

// WithToken requires the given bearer token on every todo route
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithServer lists a server in the generated OpenAPI document
func WithServer(url, description string) Option {
	return func(o *options) {
		o.servers = append(o.servers, router.Server{URL: url, Description: description})
	}
}

// API holds the components needed to register routes
type API struct {
	router              *router.DocRouter
	todoHandler         *TodoHandler
	subscriptionHandler *SubscriptionHandler
	token               string
}

// NewRouter creates a new router with all routes configured
func NewRouter(todoService TodoService, subscriber Subscriber, opts ...Option) *router.DocRouter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := router.NewDocRouter("Todos API",
		"Task tracking backend with live list subscriptions",
		"1.0.0",
	)

	r.Use(loggerMiddleware, recovererMiddleware)

	for _, server := range o.servers {
		r.WithServer(server.URL, server.Description)
	}

	api := &API{
		router:              r,
		todoHandler:         NewTodoHandler(todoService),
		subscriptionHandler: NewSubscriptionHandler(subscriber),
		token:               o.token,
	}

	api.registerRoutes()

	return r
}

// registerRoutes configures all API routes with documentation
func (api *API) registerRoutes() {
	errSchema := &model.ErrorResponse{}
	unauthorized := router.Example{
		ContentType: "application/json",
		Value:       `{"error": "missing or invalid bearer token"}`,
	}

	api.router.
		WithTag("Todos", "Operations related to todo items").
		WithTag("Core", "Core API endpoints").
		WithBearerAuth()

	api.router.Route(http.MethodGet, "/health", healthHandler).
		WithName("Health Check").
		WithDescription("API health check endpoint").
		WithResponse(&HealthResponse{}).
		WithTags("Core").
		Register()

	api.router.Route(http.MethodGet, "/todos", api.secured(api.todoHandler.ListTodos)).
		WithName("List Todos").
		WithDescription("Get all todo items, ordered by creation time unless sort says otherwise").
		WithQueryParam("sort", "One of created, updated or order", false).
		WithResponse(&model.TodoListResponse{}).
		WithErrorResponse("400", "Bad Request", errSchema,
			router.Example{
				ContentType: "application/json",
				Value:       `{"error": "unknown sort \"random\": want created, updated or order"}`,
			}).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodPost, "/todos", api.secured(api.todoHandler.CreateTodo)).
		WithName("Create Todo").
		WithDescription("Create a new todo item placed after every existing one").
		WithRequest(&model.CreateTodoRequest{}).
		WithResponse(&model.TodoResponse{}).
		WithSuccessStatus("201").
		WithErrorResponse("400", "Bad Request", errSchema,
			router.Example{
				ContentType: "application/json",
				Value:       `{"error": "invalid request format"}`,
			}).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("422", "Unprocessable Entity", errSchema,
			router.Example{
				ContentType: "application/json",
				Value:       `{"error": "title is required"}`,
			}).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodGet, "/todos/search", api.secured(api.todoHandler.SearchTodos)).
		WithName("Search Todos").
		WithDescription("Case-insensitive substring search over title and description").
		WithQueryParam("q", "Search term, empty matches everything", false).
		WithResponse(&model.TodoListResponse{}).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodGet, "/todos/subscribe", api.secured(api.subscriptionHandler.Subscribe)).
		WithName("Subscribe to Todos").
		WithDescription("Websocket upgrade. Sends the full list as a TodoListResponse text frame now and after every change").
		WithResponse(&model.TodoListResponse{}).
		WithSuccessStatus("101").
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodPut, "/todos/order", api.secured(api.todoHandler.UpdateOrder)).
		WithName("Update Order").
		WithDescription("Write the sort position of each listed todo. Items are patched one by one and the call is not atomic").
		WithRequest(&model.UpdateOrderRequest{}).
		WithResponse(&model.UpdateOrderResponse{}).
		WithErrorResponse("400", "Bad Request", errSchema).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("404", "Not Found", errSchema,
			router.Example{
				ContentType: "application/json",
				Value:       `{"error": "updated 2 of 3: order ghost: todo with id ghost not found"}`,
			}).
		WithErrorResponse("422", "Unprocessable Entity", errSchema).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodPost, "/todos/clear-completed", api.secured(api.todoHandler.ClearCompleted)).
		WithName("Clear Completed").
		WithDescription("Delete every completed todo").
		WithResponse(&model.ClearCompletedResponse{}).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodGet, "/todos/{id}", api.secured(api.todoHandler.GetTodo)).
		WithName("Get Todo").
		WithDescription("Get a todo item by ID").
		WithResponse(&model.TodoResponse{}).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("404", "Not Found", errSchema,
			router.Example{
				ContentType: "application/json",
				Value:       `{"error": "todo not found"}`,
			}).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodPatch, "/todos/{id}", api.secured(api.todoHandler.UpdateTodo)).
		WithName("Update Todo").
		WithDescription("Patch the provided fields of a todo item").
		WithRequest(&model.UpdateTodoRequest{}).
		WithResponse(&model.TodoResponse{}).
		WithErrorResponse("400", "Bad Request", errSchema).
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("404", "Not Found", errSchema).
		WithErrorResponse("422", "Unprocessable Entity", errSchema).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()

	api.router.Route(http.MethodDelete, "/todos/{id}", api.secured(api.todoHandler.DeleteTodo)).
		WithName("Delete Todo").
		WithDescription("Delete a todo item").
		WithSuccessStatus("204").
		WithErrorResponse("401", "Unauthorized", errSchema, unauthorized).
		WithErrorResponse("404", "Not Found", errSchema).
		WithErrorResponse("500", "Internal Server Error", errSchema).
		WithTags("Todos").
		WithSecurity().
		Register()
}

// healthHandler handles the health check endpoint
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}
