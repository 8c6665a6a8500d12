// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newTaskCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
		Long:    "Create and track assignments, readings and other dated work.",
	}

	cmd.AddCommand(newTaskAddCmd(repo))
	cmd.AddCommand(newTaskListCmd(repo))
	cmd.AddCommand(newTaskDoneCmd(repo))
	cmd.AddCommand(newTaskDeleteCmd(repo))

	return cmd
}

func newTaskAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject     string
		due         string
		priority    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Long: `Create a task, optionally tied to a subject.

Examples:
  arc-organizer task add "Problem set 3" --subject MATH201 --due 2025-03-14
  arc-organizer task add "Read chapter 5" --priority high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subjectID, err := resolveSubject(ctx, repo, subject)
			if err != nil {
				return err
			}

			task := &organizer.Task{
				Title:       args[0],
				SubjectID:   subjectID,
				Priority:    organizer.Priority(priority),
				Description: description,
			}
			if due != "" {
				dueTime, err := parseDate(due)
				if err != nil {
					return err
				}
				task.DueDate = dueTime
			}

			id, err := repo.AddTask(ctx, task)
			if err != nil {
				return fmt.Errorf("add task: %w", err)
			}

			fmt.Printf("Task created: %d\n", id)
			fmt.Printf("Title: %s\n", task.Title)
			if subject != "" {
				fmt.Printf("Subject: %s\n", subject)
			}
			if due != "" {
				fmt.Printf("Due: %s\n", formatDate(task.DueDate))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject id or code")
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (low/medium/high)")
	cmd.Flags().StringVar(&description, "description", "", "Longer description")

	return cmd
}

func newTaskListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject  string
		upcoming bool
		overdue  bool
		all      bool
		limit    int
		out      output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks. By default completed tasks are hidden.

Examples:
  arc-organizer task list
  arc-organizer task list --upcoming --limit 5
  arc-organizer task list --overdue
  arc-organizer task list --subject CS340 --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			if upcoming && overdue {
				return fmt.Errorf("--upcoming and --overdue are exclusive")
			}
			ctx := cmd.Context()

			var (
				tasks []*organizer.Task
				err   error
			)
			switch {
			case upcoming:
				tasks, err = repo.UpcomingTasks(ctx, limit)
			case overdue:
				tasks, err = repo.OverdueTasks(ctx)
			case subject != "":
				var id int64
				id, err = resolveSubject(ctx, repo, subject)
				if err == nil {
					tasks, err = repo.TasksBySubject(ctx, id)
				}
			default:
				tasks, err = repo.ListTasks(ctx)
			}
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			if !all {
				filtered := tasks[:0]
				for _, t := range tasks {
					if !t.Completed {
						filtered = append(filtered, t)
					}
				}
				tasks = filtered
			}

			if done, err := out.Structured(tasks); done {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}

			codes := subjectCodes(ctx, repo)
			table := output.NewTable("ID", "Title", "Subject", "Due", "Priority", "Done")
			for _, t := range tasks {
				table.AddRow(
					strconv.FormatInt(t.ID, 10),
					truncate(t.Title, 40),
					codes[t.SubjectID],
					formatDate(t.DueDate),
					string(t.Priority),
					yesNo(t.Completed),
				)
			}
			table.Render()

			fmt.Printf("\nTotal: %d task(s)\n", len(tasks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Only tasks of this subject")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "Incomplete tasks due from now on, soonest first")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "Incomplete tasks past their due date")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed tasks")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum upcoming tasks (0 = no limit)")
	out.AddOutputFlags(cmd, output.OutputTable)

	return cmd
}

func newTaskDoneCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := repo.GetTask(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			if t == nil {
				return fmt.Errorf("task %d not found", id)
			}
			if err := repo.MarkTaskComplete(cmd.Context(), id); err != nil {
				return fmt.Errorf("complete task: %w", err)
			}
			fmt.Printf("Task %d completed: %s\n", id, t.Title)
			return nil
		},
	}
}

func newTaskDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteTask(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete task: %w", err)
			}
			fmt.Printf("Task %d deleted\n", id)
			return nil
		},
	}
}
