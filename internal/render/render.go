// Package render draws todo lists for the terminal.
package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/cirocosta/todos/internal/filter"
	"github.com/cirocosta/todos/internal/model"
)

// Theme holds the styles for one color scheme.
type Theme struct {
	Name        string
	Title       lipgloss.Style
	Done        lipgloss.Style
	Check       lipgloss.Style
	Description lipgloss.Style
	Muted       lipgloss.Style
	Footer      lipgloss.Style
}

var (
	lightTheme = Theme{
		Name:        "light",
		Title:       lipgloss.NewStyle().Foreground(lipgloss.Color("#494C6B")),
		Done:        lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D2DA")).Strikethrough(true),
		Check:       lipgloss.NewStyle().Foreground(lipgloss.Color("#3A7CFD")).Bold(true),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("#9495A5")),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#9495A5")).Faint(true),
		Footer:      lipgloss.NewStyle().Foreground(lipgloss.Color("#9495A5")),
	}

	darkTheme = Theme{
		Name:        "dark",
		Title:       lipgloss.NewStyle().Foreground(lipgloss.Color("#C8CBE7")),
		Done:        lipgloss.NewStyle().Foreground(lipgloss.Color("#4D5067")).Strikethrough(true),
		Check:       lipgloss.NewStyle().Foreground(lipgloss.Color("#3A7CFD")).Bold(true),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("#5B5E7E")),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5B5E7E")).Faint(true),
		Footer:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5B5E7E")),
	}
)

// ThemeNamed returns the light or dark theme. "auto" and anything else
// follow the terminal background.
func ThemeNamed(name string) Theme {
	switch name {
	case "light":
		return lightTheme
	case "dark":
		return darkTheme
	}
	if lipgloss.HasDarkBackground() {
		return darkTheme
	}
	return lightTheme
}

// StyledOutput reports whether f is a terminal that wants colors.
func StyledOutput(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Renderer turns todos into lines of text. Without styling it emits plain
// text, which is what pipes and tests get.
type Renderer struct {
	theme  Theme
	styled bool
}

// New creates a renderer for theme.
func New(theme Theme, styled bool) *Renderer {
	return &Renderer{theme: theme, styled: styled}
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

// Todo renders one item: checkbox, title and id on the first line, then the
// description and due date when present.
func (r *Renderer) Todo(todo model.Todo) string {
	check := "[ ]"
	title := r.paint(r.theme.Title, todo.Title)
	if todo.Completed {
		check = r.paint(r.theme.Check, "[x]")
		title = r.paint(r.theme.Done, todo.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", check, title, r.paint(r.theme.Muted, "("+todo.ID+")"))

	if todo.Description != "" {
		b.WriteString("\n    ")
		b.WriteString(r.paint(r.theme.Description, todo.Description))
	}
	if todo.DueDate != nil {
		b.WriteString("\n    ")
		b.WriteString(r.paint(r.theme.Description, "Due: "+todo.DueDate.Format("Jan 2, 2006")))
	}
	return b.String()
}

// List renders the items matching query and status followed by the footer.
// The footer counts the active items of the whole list, not just the shown
// ones.
func (r *Renderer) List(todos []model.Todo, query string, status filter.Status) string {
	var b strings.Builder
	for _, todo := range filter.Apply(todos, query, status) {
		b.WriteString(r.Todo(todo))
		b.WriteString("\n")
	}
	b.WriteString(r.Footer(todos))
	b.WriteString("\n")
	return b.String()
}

// Footer is the "N items left" line.
func (r *Renderer) Footer(todos []model.Todo) string {
	return r.paint(r.theme.Footer, fmt.Sprintf("%d items left", filter.CountActive(todos)))
}

// Loading is shown until the first snapshot arrives.
func (r *Renderer) Loading() string {
	return r.paint(r.theme.Muted, "Loading todos...")
}
