// package overlay keeps the client responsive by layering locally intended
// changes over the last server snapshot until the server catches up
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cirocosta/todos/internal/model"
)

// DefaultGrace is how long a created entry is kept when no snapshot
// carrying it shows up
const DefaultGrace = 1500 * time.Millisecond

// TempIDPrefix marks ids minted locally for entries the server hasn't
// acknowledged yet
const TempIDPrefix = "temp-"

// Backend is the remote side of every mutation
type Backend interface {
	Create(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error)
	Update(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error)
	Remove(ctx context.Context, id string) error
	UpdateOrder(ctx context.Context, items []model.OrderItem) (int, error)
	ClearCompleted(ctx context.Context) (int, error)
}

type pendingAdd struct {
	tempID string
	todo   model.Todo
}

type pendingToggle struct {
	value bool
	seq   uint64

	// set once the update call succeeded
	settled   bool
	updatedAt time.Time
}

type pendingRemoval struct {
	seq     uint64
	settled bool
}

// Option configures an Overlay
type Option func(*Overlay)

// WithGrace overrides DefaultGrace
func WithGrace(d time.Duration) Option {
	return func(o *Overlay) { o.grace = d }
}

// WithTempIDs overrides how temporary ids are minted
func WithTempIDs(newID func() string) Option {
	return func(o *Overlay) { o.newTempID = newID }
}

// WithClock overrides the time source used for local timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Overlay) { o.now = now }
}

// Overlay is safe for concurrent use. Backend calls are made without
// holding its lock, so snapshots keep flowing while mutations are in flight.
type Overlay struct {
	backend   Backend
	grace     time.Duration
	newTempID func() string
	now       func() time.Time

	mu         sync.Mutex
	ready      bool
	server     []model.Todo
	adds       []pendingAdd
	toggles    map[string]*pendingToggle
	removed    map[string]*pendingRemoval
	localOrder []model.Todo
	seq        uint64
	orderSeq   uint64
	onChange   func()
}

// New creates an overlay that sends mutations to backend
func New(backend Backend, opts ...Option) *Overlay {
	o := &Overlay{
		backend:   backend,
		grace:     DefaultGrace,
		newTempID: func() string { return TempIDPrefix + uuid.NewString() },
		now:       time.Now,
		toggles:   make(map[string]*pendingToggle),
		removed:   make(map[string]*pendingRemoval),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnChange registers fn to be called after every change of the merged view.
// fn runs on whichever goroutine made the change and must not block.
func (o *Overlay) OnChange(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// Ready reports whether a server snapshot has been applied yet
func (o *Overlay) Ready() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ready
}

// View returns the merged list to display
func (o *Overlay) View() []model.Todo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mergeLocked()
}

func (o *Overlay) mergeLocked() []model.Todo {
	adds := make([]model.Todo, 0, len(o.adds))
	for _, add := range o.adds {
		adds = append(adds, add.todo)
	}

	toggles := make(map[string]bool, len(o.toggles))
	for id, toggle := range o.toggles {
		toggles[id] = toggle.value
	}

	removed := make(map[string]bool, len(o.removed))
	for id := range o.removed {
		removed[id] = true
	}

	return Merge(o.server, adds, toggles, removed, o.localOrder)
}

// ApplySnapshot replaces the server snapshot and retires every overlay
// entry the snapshot has caught up with
func (o *Overlay) ApplySnapshot(snapshot []model.Todo) {
	o.mu.Lock()

	o.ready = true
	o.server = append([]model.Todo{}, snapshot...)

	byID := make(map[string]model.Todo, len(snapshot))
	for _, todo := range snapshot {
		byID[todo.ID] = todo
	}

	kept := o.adds[:0]
	for _, add := range o.adds {
		if _, ok := byID[add.todo.ID]; ok {
			continue
		}
		kept = append(kept, add)
	}
	o.adds = kept

	for id, toggle := range o.toggles {
		if toggle.settled && toggleSatisfied(toggle, byID, id) {
			delete(o.toggles, id)
		}
	}

	for id, removal := range o.removed {
		if _, ok := byID[id]; removal.settled && !ok {
			delete(o.removed, id)
		}
	}

	o.unlockAndNotify()
}

// toggleSatisfied reports whether the server no longer needs the override:
// it reports the expected value, the item is gone, or someone wrote it
// after our update landed.
func toggleSatisfied(toggle *pendingToggle, byID map[string]model.Todo, id string) bool {
	todo, ok := byID[id]
	if !ok {
		return true
	}
	return todo.Completed == toggle.value || todo.UpdatedAt.After(toggle.updatedAt)
}

// Run applies every snapshot received until the channel closes or ctx is
// done
func (o *Overlay) Run(ctx context.Context, snapshots <-chan []model.Todo) error {
	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			o.ApplySnapshot(snapshot)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Create validates req, shows the todo right away under a temporary id and
// asks the backend to create it. On failure the entry disappears and the
// error is returned. On success the entry takes the server's id and stays
// until a snapshot carrying it arrives or the grace window passes.
func (o *Overlay) Create(ctx context.Context, req model.CreateTodoRequest) (model.Todo, error) {
	title, err := model.NormalizeTitle(req.Title)
	if err != nil {
		return model.Todo{}, err
	}
	req.Title = title
	req.Description = strings.TrimSpace(req.Description)
	req.DueDate = model.NormalizeDueDate(req.DueDate)

	now := o.now().UTC()
	tempID := o.newTempID()

	o.mu.Lock()
	o.adds = append([]pendingAdd{{
		tempID: tempID,
		todo: model.Todo{
			ID:          tempID,
			Title:       req.Title,
			Description: req.Description,
			DueDate:     req.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}}, o.adds...)
	o.unlockAndNotify()

	created, err := o.backend.Create(ctx, req)

	o.mu.Lock()
	if err != nil {
		o.dropAddLocked(tempID)
		o.unlockAndNotify()

		slog.Error("optimistic create failed", "op", "create", "id", tempID, "err", err)
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}

	if o.serverHasLocked(created.ID) {
		o.dropAddLocked(tempID)
	} else if add := o.findAddLocked(tempID); add != nil {
		add.todo = created
		time.AfterFunc(o.grace, func() { o.expireAdd(tempID) })
	}
	o.unlockAndNotify()

	return created, nil
}

func (o *Overlay) expireAdd(tempID string) {
	o.mu.Lock()
	if !o.dropAddLocked(tempID) {
		o.mu.Unlock()
		return
	}
	o.unlockAndNotify()
}

// Toggle shows id with the given completion state right away and asks the
// backend to store it. A failure reverts the display unless a newer toggle
// of the same id has replaced this one.
func (o *Overlay) Toggle(ctx context.Context, id string, completed bool) error {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.toggles[id] = &pendingToggle{value: completed, seq: seq}
	o.unlockAndNotify()

	updated, err := o.backend.Update(ctx, id, model.UpdateTodoRequest{Completed: &completed})

	o.mu.Lock()
	if toggle, ok := o.toggles[id]; ok && toggle.seq == seq {
		switch {
		case err != nil:
			delete(o.toggles, id)
		case o.serverValueLocked(id, completed):
			delete(o.toggles, id)
		default:
			toggle.settled = true
			toggle.updatedAt = updated.UpdatedAt
		}
	}
	o.unlockAndNotify()

	if err != nil {
		slog.Error("optimistic toggle failed", "op", "toggle", "id", id, "err", err)
		return fmt.Errorf("toggle todo %s: %w", id, err)
	}
	return nil
}

// Delete hides id right away and asks the backend to remove it. A failure
// shows it again.
func (o *Overlay) Delete(ctx context.Context, id string) error {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.removed[id] = &pendingRemoval{seq: seq}
	o.unlockAndNotify()

	err := o.backend.Remove(ctx, id)

	o.mu.Lock()
	if err == nil {
		o.dropAddsWithIDLocked(id)
	}
	if removal, ok := o.removed[id]; ok && removal.seq == seq {
		switch {
		case err != nil:
			delete(o.removed, id)
		case !o.serverHasLocked(id):
			delete(o.removed, id)
		default:
			removal.settled = true
		}
	}
	o.unlockAndNotify()

	if err != nil {
		slog.Error("optimistic delete failed", "op", "delete", "id", id, "err", err)
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

// Reorder displays sequence as given until the backend has answered, then
// falls back to whatever the snapshots report. Each item is sent with its
// 0-based position as the new order.
func (o *Overlay) Reorder(ctx context.Context, sequence []model.Todo) error {
	o.mu.Lock()
	o.orderSeq++
	seq := o.orderSeq
	o.localOrder = append([]model.Todo{}, sequence...)
	o.unlockAndNotify()

	_, err := o.backend.UpdateOrder(ctx, model.OrderItems(sequence))

	o.mu.Lock()
	if o.orderSeq == seq {
		o.localOrder = nil
	}
	o.unlockAndNotify()

	if err != nil {
		slog.Error("reorder failed", "op", "reorder", "items", len(sequence), "err", err)
		return fmt.Errorf("reorder todos: %w", err)
	}
	return nil
}

// Edit updates a todo without any optimistic display; the caller waits for
// the backend answer
func (o *Overlay) Edit(ctx context.Context, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	if req.Title != nil {
		title, err := model.NormalizeTitle(*req.Title)
		if err != nil {
			return model.Todo{}, err
		}
		req.Title = &title
	}
	req.DueDate = model.NormalizeDueDate(req.DueDate)

	updated, err := o.backend.Update(ctx, id, req)
	if err != nil {
		slog.Error("edit failed", "op", "edit", "id", id, "err", err)
		return model.Todo{}, fmt.Errorf("edit todo %s: %w", id, err)
	}
	return updated, nil
}

// ClearCompleted asks the backend to remove every completed todo
func (o *Overlay) ClearCompleted(ctx context.Context) (int, error) {
	removed, err := o.backend.ClearCompleted(ctx)
	if err != nil {
		slog.Error("clear completed failed", "op", "clear-completed", "err", err)
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return removed, nil
}

func (o *Overlay) findAddLocked(tempID string) *pendingAdd {
	for i := range o.adds {
		if o.adds[i].tempID == tempID {
			return &o.adds[i]
		}
	}
	return nil
}

func (o *Overlay) dropAddLocked(tempID string) bool {
	for i, add := range o.adds {
		if add.tempID == tempID {
			o.adds = append(o.adds[:i], o.adds[i+1:]...)
			return true
		}
	}
	return false
}

// dropAddsWithIDLocked forgets created entries that already carry the
// server id.
func (o *Overlay) dropAddsWithIDLocked(id string) {
	kept := o.adds[:0]
	for _, add := range o.adds {
		if add.todo.ID != id {
			kept = append(kept, add)
		}
	}
	o.adds = kept
}

func (o *Overlay) serverHasLocked(id string) bool {
	for _, todo := range o.server {
		if todo.ID == id {
			return true
		}
	}
	return false
}

func (o *Overlay) serverValueLocked(id string, completed bool) bool {
	for _, todo := range o.server {
		if todo.ID == id {
			return todo.Completed == completed
		}
	}
	return false
}

// unlockAndNotify releases the lock and then runs the change callback
func (o *Overlay) unlockAndNotify() {
	fn := o.onChange
	o.mu.Unlock()

	if fn != nil {
		fn()
	}
}
