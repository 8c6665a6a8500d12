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

func newGoalCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Track personal goals",
	}

	cmd.AddCommand(newGoalAddCmd(repo))
	cmd.AddCommand(newGoalListCmd(repo))
	cmd.AddCommand(newGoalDoneCmd(repo))
	cmd.AddCommand(newGoalDeleteCmd(repo))

	return cmd
}

func newGoalAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		target   string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := &organizer.Goal{Title: args[0], Priority: organizer.Priority(priority)}
			if target != "" {
				t, err := parseDate(target)
				if err != nil {
					return err
				}
				g.TargetDate = t
			}
			id, err := repo.AddGoal(cmd.Context(), g)
			if err != nil {
				return fmt.Errorf("add goal: %w", err)
			}
			fmt.Printf("Goal created: %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (low/medium/high)")
	return cmd
}

func newGoalListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		all bool
		out output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			var (
				goals []*organizer.Goal
				err   error
			)
			if all {
				goals, err = repo.ListGoals(cmd.Context())
			} else {
				goals, err = repo.ActiveGoals(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list goals: %w", err)
			}

			if done, err := out.Structured(goals); done {
				return err
			}
			if len(goals) == 0 {
				fmt.Println("No goals found.")
				return nil
			}

			table := output.NewTable("ID", "Title", "Target", "Priority", "Done")
			for _, g := range goals {
				table.AddRow(
					strconv.FormatInt(g.ID, 10),
					truncate(g.Title, 40),
					formatDate(g.TargetDate),
					string(g.Priority),
					yesNo(g.Completed),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed goals")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newGoalDoneCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a goal as achieved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.MarkGoalComplete(cmd.Context(), id); err != nil {
				return fmt.Errorf("complete goal: %w", err)
			}
			fmt.Printf("Goal %d completed\n", id)
			return nil
		},
	}
}

func newGoalDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteGoal(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete goal: %w", err)
			}
			fmt.Printf("Goal %d deleted\n", id)
			return nil
		},
	}
}
