package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirocosta/todos/internal/model"
)

var sample = []model.Todo{
	{ID: "1", Title: "Buy MILK", Description: "", Completed: true},
	{ID: "2", Title: "Call mom", Description: "about the milk run", Completed: false},
	{ID: "3", Title: "Walk dog", Description: "park", Completed: true},
	{ID: "4", Title: "Pay rent", Description: "", Completed: false},
	{ID: "5", Title: "milkshake", Description: "", Completed: true},
}

func ids(todos []model.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, todo := range todos {
		out = append(out, todo.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		query  string
		status Status
		want   []string
	}{
		"all, no query":       {status: StatusAll, want: []string{"1", "2", "3", "4", "5"}},
		"active":              {status: StatusActive, want: []string{"2", "4"}},
		"completed":           {status: StatusCompleted, want: []string{"1", "3", "5"}},
		"query only":          {query: "milk", status: StatusAll, want: []string{"1", "2", "5"}},
		"completed and query": {query: "MiLk", status: StatusCompleted, want: []string{"1", "5"}},
		"active and query":    {query: "milk", status: StatusActive, want: []string{"2"}},
		"description match":   {query: "PARK", status: StatusAll, want: []string{"3"}},
		"no match":            {query: "zebra", status: StatusAll, want: []string{}},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := ids(Apply(sample, tc.query, tc.status))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyIsIntersection(t *testing.T) {
	t.Parallel()

	query := "milk"
	got := Apply(sample, query, StatusCompleted)

	var want []model.Todo
	for _, todo := range sample {
		if todo.Completed && MatchesQuery(todo, query) {
			want = append(want, todo)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("intersection mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Status{
		"":           StatusAll,
		"all":        StatusAll,
		"Active":     StatusActive,
		" completed": StatusCompleted,
	} {
		got, err := ParseStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseStatus("done")
	assert.Error(t, err)
}

func TestCountActive(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2, CountActive(sample))
	assert.Equal(t, 0, CountActive(nil))
}
