// package client talks to the todos HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cirocosta/todos/internal/model"
)

// DefaultReconnectDelay is the pause between subscription re-dials
const DefaultReconnectDelay = time.Second

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todos api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

// Client calls the todos API.
type Client struct {
	baseURL        string
	token          string
	client         *http.Client
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithToken sends the token as a bearer credential on every call
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithReconnectDelay sets the fixed pause before re-dialing a dropped
// subscription
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// New creates a client for the given address or URL.
func New(addr string, opts ...Option) *Client {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &Client{
		baseURL:        baseURL,
		client:         &http.Client{},
		dialer:         websocket.DefaultDialer,
		reconnectDelay: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every todo. sort may be empty, created, updated or order.
func (c *Client) List(ctx context.Context, sort string) ([]model.Todo, error) {
	path := "/todos"
	if sort != "" {
		path += "?" + url.Values{"sort": {sort}}.Encode()
	}

	var response model.TodoListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Todos, nil
}

// Search returns the todos whose title or description contain term.
func (c *Client) Search(ctx context.Context, term string) ([]model.Todo, error) {
	var response model.TodoListResponse
	path := "/todos/search?" + url.Values{"q": {term}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Todos, nil
}

// Get returns one todo.
func (c *Client) Get(ctx context.Context, id string) (model.Todo, error) {
	var response model.TodoResponse
	if err := c.do(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, &response); err != nil {
		return model.Todo{}, err
	}
	return response.Todo, nil
}

// Create adds a todo and returns it as stored by the server.
func (c *Client) Create(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error) {
	var response model.TodoResponse
	if err := c.do(ctx, http.MethodPost, "/todos", req, &response); err != nil {
		return model.Todo{}, err
	}
	return response.Todo, nil
}

// Update patches a todo.
func (c *Client) Update(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	var response model.TodoResponse
	if err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), req, &response); err != nil {
		return model.Todo{}, err
	}
	return response.Todo, nil
}

// Remove deletes a todo.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

// UpdateOrder writes the given order assignments and returns how many the
// server applied.
func (c *Client) UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error) {
	var response model.UpdateOrderResponse
	if err := c.do(ctx, http.MethodPut, "/todos/order", model.UpdateOrderRequest{Items: items}, &response); err != nil {
		return 0, err
	}
	return response.Updated, nil
}

// ClearCompleted removes every completed todo and returns how many went.
func (c *Client) ClearCompleted(ctx context.Context) (int, error) {
	var response model.ClearCompletedResponse
	if err := c.do(ctx, http.MethodPost, "/todos/clear-completed", nil, &response); err != nil {
		return 0, err
	}
	return response.Removed, nil
}

// Subscribe streams full list snapshots. The first connection is made
// before returning; after that a dropped connection is re-dialed every
// reconnect delay until ctx is done, at which point the channel closes.
func (c *Client) Subscribe(ctx context.Context) (<-chan []model.Todo, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []model.Todo)
	go func() {
		defer close(out)

		for {
			err := c.stream(ctx, conn, out)
			if ctx.Err() != nil {
				return
			}
			slog.Warn("subscription dropped", "err", err)

			conn = c.redial(ctx)
			if conn == nil {
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) redial(ctx context.Context) *websocket.Conn {
	t := time.NewTicker(c.reconnectDelay)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			conn, err := c.dial(ctx)
			if err == nil {
				slog.Info("subscription restored")
				return conn
			}
			slog.Warn("failed to dial subscription", "err", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := c.baseURL + "/todos/subscribe"
	u = "ws" + strings.TrimPrefix(u, "http")

	header := http.Header{}
	c.authorize(header)

	conn, resp, err := c.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, readErrorResponse(resp)
		}
		return nil, fmt.Errorf("dial subscription: %w", err)
	}
	return conn, nil
}

// stream forwards snapshots from conn until it fails or ctx is done
func (c *Client) stream(ctx context.Context, conn *websocket.Conn, out chan<- []model.Todo) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var snapshot model.TodoListResponse
		if err := conn.ReadJSON(&snapshot); err != nil {
			return err
		}

		select {
		case out <- snapshot.Todos:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) authorize(header http.Header) {
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readErrorResponse(resp)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func readErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	var payload model.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
