package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cirocosta/todos/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const todoColumns = "id, title, description, completed, due_date, sort_order, created_at, updated_at"

// SQLiteTodoRepository implements TodoRepository on top of a SQLite database
type SQLiteTodoRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteTodoRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and writers serialized
	db.SetMaxOpenConns(1)

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteTodoRepository{db: db}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// Close releases the underlying database handle
func (r *SQLiteTodoRepository) Close() error {
	return r.db.Close()
}

// FindAll returns all todos ordered by creation time
func (r *SQLiteTodoRepository) FindAll(ctx context.Context) ([]model.Todo, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}

	return todos, nil
}

// FindByID returns a specific todo by ID
func (r *SQLiteTodoRepository) FindByID(ctx context.Context, id string) (model.Todo, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = ?", id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, ErrTodoNotFound{ID: id}
	}
	if err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

// Create adds a new todo
func (r *SQLiteTodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO todos ("+todoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		todo.ID,
		todo.Title,
		todo.Description,
		boolToInt(todo.Completed),
		nullDate(todo.DueDate),
		todo.Order,
		todo.CreatedAt.UTC().UnixNano(),
		todo.UpdatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return todo, nil
}

// Update replaces an existing todo
func (r *SQLiteTodoRepository) Update(ctx context.Context, id string, todo model.Todo) (model.Todo, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos
		 SET title = ?, description = ?, completed = ?, due_date = ?, sort_order = ?, updated_at = ?
		 WHERE id = ?`,
		todo.Title,
		todo.Description,
		boolToInt(todo.Completed),
		nullDate(todo.DueDate),
		todo.Order,
		todo.UpdatedAt.UTC().UnixNano(),
		id,
	)
	if err != nil {
		return model.Todo{}, fmt.Errorf("update todo %s: %w", id, err)
	}
	if err := expectOneRow(res, id); err != nil {
		return model.Todo{}, err
	}

	todo.ID = id
	return todo, nil
}

// Delete removes a todo
func (r *SQLiteTodoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// DeleteCompleted removes every completed todo
func (r *SQLiteTodoRepository) DeleteCompleted(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE completed = 1")
	if err != nil {
		return 0, fmt.Errorf("delete completed todos: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// MaxOrder returns the largest order value currently stored
func (r *SQLiteTodoRepository) MaxOrder(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(sort_order) FROM todos").Scan(&max); err != nil {
		return 0, fmt.Errorf("query max order: %w", err)
	}
	return max.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (model.Todo, error) {
	var (
		todo      model.Todo
		completed int64
		dueDate   sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &completed, &dueDate, &todo.Order, &createdAt, &updatedAt); err != nil {
		return model.Todo{}, err
	}

	todo.Completed = completed != 0
	todo.CreatedAt = time.Unix(0, createdAt).UTC()
	todo.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if dueDate.Valid {
		due := time.Unix(dueDate.Int64, 0).UTC()
		todo.DueDate = &due
	}
	return todo, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTodoNotFound{ID: id}
	}
	return nil
}

// nullDate stores a due date as unix seconds. Due dates are whole days, and
// nanoseconds would overflow past the year 2262.
func nullDate(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
