package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/cirocosta/todos/internal/filter"
	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/overlay"
	"github.com/cirocosta/todos/internal/render"
	"github.com/cirocosta/todos/internal/service"
)

const clearScreen = "\x1b[H\x1b[2J"

const watchHelp = `commands:
  add <title>          create a todo
  toggle <id>          flip completion
  rm <id>              delete
  edit <id> <title>    rename
  mv <id> <position>   move to a 1-based position
  clear                delete completed todos
  filter <status>      all, active or completed
  search [text]        narrow the list, empty to reset
  help                 show this message
  quit                 wait for pending changes and exit`

var errQuit = errors.New("quit")

func newWatchCmd(a *app) *cobra.Command {
	var (
		cf     clientFlags
		sort   string
		status string
		query  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live list and change it from stdin",
		Long: `Follow the live list and change it from stdin.

Changes show up right away and are reconciled with the server as its
snapshots arrive. Snapshots are shown in client.sort order, so a moved todo
keeps its place once the server has stored it. Type "help" for the command
list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order := a.cfg.Client.Sort
			overrideString(cmd.Flags(), "sort", &order, sort)
			sortOrder, err := service.ParseSortOrder(order)
			if err != nil {
				return err
			}

			selected, err := filter.ParseStatus(status)
			if err != nil {
				return err
			}

			c := a.client(cmd, &cf)
			snapshots, err := c.Subscribe(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			repaint := false
			if f, ok := out.(*os.File); ok {
				repaint = render.StyledOutput(f)
			}

			w := &watcher{
				overlay: overlay.New(c, overlay.WithGrace(a.cfg.Client.Grace.Duration)),
				render:  a.renderer(out),
				out:     out,
				errOut:  cmd.ErrOrStderr(),
				status:  selected,
				query:   query,
				repaint: repaint,
			}
			return w.run(cmd.Context(), sortedSnapshots(cmd.Context(), snapshots, sortOrder), cmd.InOrStdin())
		},
	}

	addClientFlags(cmd, &cf)
	cmd.Flags().StringVar(&sort, "sort", "", "created, updated or order (overrides client.sort)")
	cmd.Flags().StringVar(&status, "status", "all", "all, active or completed")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show todos whose title or description contain this text")

	return cmd
}

type watcher struct {
	overlay *overlay.Overlay
	render  *render.Renderer
	out     io.Writer
	errOut  io.Writer
	repaint bool

	// only touched by the run loop
	status filter.Status
	query  string

	pending sync.WaitGroup
}

func (w *watcher) run(ctx context.Context, snapshots <-chan []model.Todo, in io.Reader) error {
	changes := make(chan struct{}, 1)
	w.overlay.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.overlay.Run(ctx, snapshots)
	}()

	input := make(chan string)
	go scanLines(ctx, in, input)

	fmt.Fprintln(w.out, w.render.Loading())

	// input waits until there is a list to act on
	var lines <-chan string
	for {
		if lines == nil && input != nil && w.overlay.Ready() {
			lines = input
		}

		select {
		case <-changes:
			w.draw()
		case line, ok := <-lines:
			if !ok {
				lines, input = nil, nil
				continue
			}
			if err := w.handle(ctx, line); errors.Is(err, errQuit) {
				w.pending.Wait()
				w.draw()
				return nil
			} else if err != nil {
				fmt.Fprintf(w.errOut, "error: %v\n", err)
			}
		case err := <-done:
			w.pending.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

func (w *watcher) draw() {
	if !w.overlay.Ready() {
		return
	}
	if w.repaint {
		fmt.Fprint(w.out, clearScreen)
	}
	fmt.Fprintln(w.out, w.render.List(w.overlay.View(), w.query, w.status))
}

// handle runs one input line. Remote mutations run in the background so the
// optimistic view keeps rendering while they are in flight.
func (w *watcher) handle(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "":
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(w.out, watchHelp)
		return nil
	case "filter":
		status, err := filter.ParseStatus(rest)
		if err != nil {
			return err
		}
		w.status = status
		w.draw()
		return nil
	case "search":
		w.query = rest
		w.draw()
		return nil
	case "add":
		if _, err := model.NormalizeTitle(rest); err != nil {
			return err
		}
		w.background(name, func() error {
			_, err := w.overlay.Create(ctx, model.CreateTodoRequest{Title: rest})
			return err
		})
		return nil
	case "toggle":
		todo, err := w.find(rest)
		if err != nil {
			return err
		}
		w.background(name, func() error {
			return w.overlay.Toggle(ctx, todo.ID, !todo.Completed)
		})
		return nil
	case "rm":
		todo, err := w.find(rest)
		if err != nil {
			return err
		}
		w.background(name, func() error {
			return w.overlay.Delete(ctx, todo.ID)
		})
		return nil
	case "edit":
		id, title, _ := strings.Cut(rest, " ")
		todo, err := w.find(id)
		if err != nil {
			return err
		}
		title = strings.TrimSpace(title)
		w.background(name, func() error {
			_, err := w.overlay.Edit(ctx, todo.ID, model.UpdateTodoRequest{Title: &title})
			return err
		})
		return nil
	case "mv":
		id, position, _ := strings.Cut(rest, " ")
		to, err := strconv.Atoi(strings.TrimSpace(position))
		if err != nil {
			return fmt.Errorf("mv: position must be a number: %w", err)
		}
		sequence, err := moveTo(w.overlay.View(), id, to)
		if err != nil {
			return err
		}
		w.background(name, func() error {
			return w.overlay.Reorder(ctx, sequence)
		})
		return nil
	case "clear":
		w.background(name, func() error {
			_, err := w.overlay.ClearCompleted(ctx)
			return err
		})
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
}

func (w *watcher) background(name string, fn func() error) {
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		if err := fn(); err != nil {
			fmt.Fprintf(w.errOut, "%s: %v\n", name, err)
		}
	}()
}

func (w *watcher) find(id string) (model.Todo, error) {
	if id == "" {
		return model.Todo{}, fmt.Errorf("an id is required")
	}
	for _, todo := range w.overlay.View() {
		if todo.ID == id {
			return todo, nil
		}
	}
	return model.Todo{}, fmt.Errorf("no todo with id %s in the list", id)
}

// moveTo returns todos with id moved to the 1-based position, clamped to
// the list bounds.
func moveTo(todos []model.Todo, id string, position int) ([]model.Todo, error) {
	from := -1
	for i, todo := range todos {
		if todo.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("no todo with id %s in the list", id)
	}

	to := min(max(position-1, 0), len(todos)-1)

	moved := todos[from]
	rest := make([]model.Todo, 0, len(todos))
	rest = append(rest, todos[:from]...)
	rest = append(rest, todos[from+1:]...)

	sequence := make([]model.Todo, 0, len(todos))
	sequence = append(sequence, rest[:to]...)
	sequence = append(sequence, moved)
	sequence = append(sequence, rest[to:]...)
	return sequence, nil
}

// sortedSnapshots orders every snapshot before the overlay sees it. The
// returned channel closes when snapshots does or ctx is done.
func sortedSnapshots(ctx context.Context, snapshots <-chan []model.Todo, order service.SortOrder) <-chan []model.Todo {
	out := make(chan []model.Todo)
	go func() {
		defer close(out)
		for snapshot := range snapshots {
			service.SortTodos(snapshot, order)
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func scanLines(ctx context.Context, in io.Reader, out chan<- string) {
	defer close(out)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
