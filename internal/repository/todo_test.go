package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirocosta/todos/internal/model"
)

func newRepositories(t *testing.T) map[string]TodoRepository {
	t.Helper()

	sqliteRepo, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]TodoRepository{
		"memory": NewInMemoryTodoRepository(),
		"sqlite": sqliteRepo,
	}
}

func fixture(id string, created time.Time, completed bool, order int64) model.Todo {
	return model.Todo{
		ID:          id,
		Title:       "todo " + id,
		Description: "description " + id,
		Completed:   completed,
		Order:       order,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestRepositoryContract(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range newRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			max, err := repo.MaxOrder(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), max, "empty repository has max order 0")

			due := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
			second := fixture("b", base.Add(time.Minute), true, 7)
			second.DueDate = &due

			// insert out of creation order
			_, err = repo.Create(ctx, second)
			require.NoError(t, err)
			_, err = repo.Create(ctx, fixture("a", base, false, 3))
			require.NoError(t, err)
			_, err = repo.Create(ctx, fixture("c", base.Add(2*time.Minute), true, 1))
			require.NoError(t, err)

			all, err := repo.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})

			got, err := repo.FindByID(ctx, "b")
			require.NoError(t, err)
			if diff := cmp.Diff(second, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			max, err = repo.MaxOrder(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(7), max)

			got.Title = "renamed"
			got.DueDate = nil
			got.UpdatedAt = base.Add(time.Hour)
			_, err = repo.Update(ctx, "b", got)
			require.NoError(t, err)

			reloaded, err := repo.FindByID(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, "renamed", reloaded.Title)
			assert.Nil(t, reloaded.DueDate)
			assert.True(t, reloaded.UpdatedAt.Equal(base.Add(time.Hour)))

			removed, err := repo.DeleteCompleted(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			remaining, err := repo.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, remaining, 1)
			assert.Equal(t, "a", remaining[0].ID)

			require.NoError(t, repo.Delete(ctx, "a"))
			err = repo.Delete(ctx, "a")
			assert.True(t, IsNotFound(err), "second delete should be not found, got %v", err)
		})
	}
}

func TestRepositoryDueDateRange(t *testing.T) {
	t.Parallel()

	for name, due := range map[string]time.Time{
		"recent":       time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		"year 3000":    time.Date(3000, time.January, 1, 0, 0, 0, 0, time.UTC),
		"year 1600":    time.Date(1600, time.June, 15, 0, 0, 0, 0, time.UTC),
		"before epoch": time.Date(1969, time.December, 31, 0, 0, 0, 0, time.UTC),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for driver, repo := range newRepositories(t) {
				ctx := context.Background()
				todo := fixture("a", time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), false, 1)
				todo.DueDate = &due

				_, err := repo.Create(ctx, todo)
				require.NoError(t, err, driver)

				got, err := repo.FindByID(ctx, "a")
				require.NoError(t, err, driver)
				require.NotNil(t, got.DueDate, driver)
				assert.True(t, got.DueDate.Equal(due), "%s: got %s, want %s", driver, got.DueDate, due)
			}
		})
	}
}

func TestRepositoryNotFound(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.FindByID(ctx, "missing")
			assert.Equal(t, ErrTodoNotFound{ID: "missing"}, err)

			_, err = repo.Update(ctx, "missing", model.Todo{Title: "x"})
			assert.True(t, IsNotFound(err))

			err = repo.Delete(ctx, "missing")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewInMemoryTodoRepository()
	due := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	todo := fixture("a", due, false, 1)
	todo.DueDate = &due

	_, err := repo.Create(ctx, todo)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	*got.DueDate = got.DueDate.Add(24 * time.Hour)

	again, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, again.DueDate.Equal(due), "stored due date must not alias caller memory")
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := OpenSQLite("")
	assert.Error(t, err)
}
