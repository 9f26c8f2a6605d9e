// package live pushes full todo-list snapshots to subscribers whenever the
// underlying data changes
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cirocosta/todos/internal/model"
)

// Lister produces the current full list of todos
type Lister func(ctx context.Context) ([]model.Todo, error)

// Hub fans change notifications out to subscribers. Each subscriber gets a
// fresh snapshot after every change; bursts of changes that arrive while a
// subscriber is still busy collapse into a single snapshot.
type Hub struct {
	list Lister

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	wake chan struct{}
}

// NewHub creates a hub that reads snapshots through list
func NewHub(list Lister) *Hub {
	return &Hub{
		list: list,
		subs: make(map[*subscriber]struct{}),
	}
}

// Notify wakes every subscriber. It never blocks.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscribe returns a channel that first carries the current snapshot and
// then a new one after each change. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (<-chan []model.Todo, error) {
	sub := &subscriber{wake: make(chan struct{}, 1)}

	// register before the first read so no change can slip in between
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	first, err := h.list(ctx)
	if err != nil {
		h.unsubscribe(sub)
		return nil, err
	}

	out := make(chan []model.Todo)
	go h.pump(ctx, sub, first, out)
	return out, nil
}

func (h *Hub) pump(ctx context.Context, sub *subscriber, first []model.Todo, out chan<- []model.Todo) {
	defer close(out)
	defer h.unsubscribe(sub)

	snapshot := first
	for {
		select {
		case out <- snapshot:
		case <-ctx.Done():
			return
		}

		next, ok := h.await(ctx, sub)
		if !ok {
			return
		}
		snapshot = next
	}
}

// await blocks until the next change and reads a snapshot for it. A failed
// read is logged and the subscriber waits for the following change.
func (h *Hub) await(ctx context.Context, sub *subscriber) ([]model.Todo, bool) {
	for {
		select {
		case <-sub.wake:
		case <-ctx.Done():
			return nil, false
		}

		next, err := h.list(ctx)
		if err == nil {
			return next, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		slog.Error("list snapshot", "error", err)
	}
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}
