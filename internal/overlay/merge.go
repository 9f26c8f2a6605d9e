package overlay

import (
	"github.com/cirocosta/todos/internal/model"
)

// Merge combines the last server snapshot with the locally intended changes
// into the list to display.
//
// A local order override wins outright. Otherwise optimistic adds come
// first, followed by the server items that are neither marked removed nor
// shadowed by an add with the same id, with their completion state replaced
// by any pending toggle.
func Merge(server, adds []model.Todo, toggles map[string]bool, removed map[string]bool, localOrder []model.Todo) []model.Todo {
	if localOrder != nil {
		return append([]model.Todo{}, localOrder...)
	}

	merged := make([]model.Todo, 0, len(adds)+len(server))
	shadowed := make(map[string]bool, len(adds))
	for _, add := range adds {
		shadowed[add.ID] = true
		if removed[add.ID] {
			continue
		}
		merged = append(merged, add)
	}

	for _, todo := range server {
		if removed[todo.ID] || shadowed[todo.ID] {
			continue
		}
		if completed, ok := toggles[todo.ID]; ok {
			todo.Completed = completed
		}
		merged = append(merged, todo)
	}

	return merged
}
