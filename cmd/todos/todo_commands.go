package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cirocosta/todos/internal/filter"
	"github.com/cirocosta/todos/internal/model"
	"github.com/cirocosta/todos/internal/service"
)

func newListCmd(a *app) *cobra.Command {
	var (
		cf     clientFlags
		sort   string
		status string
		query  string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List todos",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order := a.cfg.Client.Sort
			overrideString(cmd.Flags(), "sort", &order, sort)
			if _, err := service.ParseSortOrder(order); err != nil {
				return err
			}

			selected, err := filter.ParseStatus(status)
			if err != nil {
				return err
			}

			todos, err := a.client(cmd, &cf).List(cmd.Context(), order)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), a.renderer(cmd.OutOrStdout()).List(todos, query, selected))
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	cmd.Flags().StringVar(&sort, "sort", "", "created, updated or order (overrides client.sort)")
	cmd.Flags().StringVar(&status, "status", "all", "all, active or completed")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show todos whose title or description contain this text")

	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Search todos by title or description on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todos, err := a.client(cmd, &cf).Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), a.renderer(cmd.OutOrStdout()).List(todos, "", filter.StatusAll))
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var (
		cf          clientFlags
		description string
		due         string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:     "add <title>...",
		Short:   "Create a todo",
		Aliases: []string{"create"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := model.NormalizeTitle(strings.Join(args, " "))
			if err != nil {
				return err
			}
			dueDate, err := model.ParseDueDate(due)
			if err != nil {
				return err
			}

			created, err := a.client(cmd, &cf).Create(cmd.Context(), model.CreateTodoRequest{
				Title:       title,
				Description: strings.TrimSpace(description),
				DueDate:     dueDate,
			})
			if err != nil {
				return err
			}

			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.renderer(cmd.OutOrStdout()).Todo(created))
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the new id")

	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		cf          clientFlags
		title       string
		description string
		due         string
		clearDue    bool
	)

	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change the title, description or due date of a todo",
		Aliases: []string{"update"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("due") && clearDue {
				return fmt.Errorf("--due and --clear-due are mutually exclusive")
			}

			var req model.UpdateTodoRequest
			if flags.Changed("title") {
				normalized, err := model.NormalizeTitle(title)
				if err != nil {
					return err
				}
				req.Title = &normalized
			}
			if flags.Changed("description") {
				trimmed := strings.TrimSpace(description)
				req.Description = &trimmed
			}
			if flags.Changed("due") {
				dueDate, err := model.ParseDueDate(due)
				if err != nil {
					return err
				}
				req.DueDate = dueDate
				req.ClearDueDate = dueDate == nil
			}
			if clearDue {
				req.ClearDueDate = true
			}
			if req.Empty() {
				return fmt.Errorf("nothing to update: pass --title, --description, --due or --clear-due")
			}

			updated, err := a.client(cmd, &cf).Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), a.renderer(cmd.OutOrStdout()).Todo(updated))
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date as YYYY-MM-DD, empty to clear")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")

	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "toggle <id>...",
		Short: "Flip the completion state of todos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client(cmd, &cf)
			r := a.renderer(cmd.OutOrStdout())

			for _, id := range args {
				todo, err := c.Get(cmd.Context(), id)
				if err != nil {
					return err
				}

				completed := !todo.Completed
				updated, err := c.Update(cmd.Context(), id, model.UpdateTodoRequest{Completed: &completed})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.Todo(updated))
			}
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:     "rm <id>...",
		Short:   "Delete todos",
		Aliases: []string{"delete", "remove"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client(cmd, &cf)
			for _, id := range args {
				if err := c.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	return cmd
}

func newReorderCmd(a *app) *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Give the listed todos positions 0, 1, 2... in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sequence := make([]model.Todo, 0, len(args))
			for _, id := range args {
				sequence = append(sequence, model.Todo{ID: id})
			}

			updated, err := a.client(cmd, &cf).UpdateOrder(cmd.Context(), model.OrderItems(sequence))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reordered %d todos\n", updated)
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	return cmd
}

func newClearCompletedCmd(a *app) *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.client(cmd, &cf).ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d completed todos\n", removed)
			return nil
		},
	}

	addClientFlags(cmd, &cf)
	return cmd
}
