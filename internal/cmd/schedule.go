// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newScheduleCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage the weekly class schedule",
	}

	cmd.AddCommand(newScheduleAddCmd(repo))
	cmd.AddCommand(newScheduleListCmd(repo))
	cmd.AddCommand(newScheduleDeleteCmd(repo))

	return cmd
}

// parseWeekday accepts 0-6 (0 = Sunday) or an English day name.
func parseWeekday(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return n, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if l := strings.ToLower(s); l == name || (len(l) >= 3 && strings.HasPrefix(name, l)) {
			return int(d), nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", s)
}

func newScheduleAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		end  string
		room string
	)

	cmd := &cobra.Command{
		Use:   "add <subject> <day> <start>",
		Short: "Add a weekly class slot",
		Long: `Add a weekly class slot. Times are 24 hour HH:MM.

Examples:
  arc-organizer schedule add MATH201 monday 09:00 --end 10:30 --room B12
  arc-organizer schedule add CS340 3 14:00`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subjectID, err := resolveSubject(ctx, repo, args[0])
			if err != nil {
				return err
			}
			day, err := parseWeekday(args[1])
			if err != nil {
				return err
			}
			item := &organizer.ScheduleItem{
				SubjectID: subjectID,
				DayOfWeek: day,
				StartTime: args[2],
				EndTime:   end,
				Room:      room,
			}
			id, err := repo.AddScheduleItem(ctx, item)
			if err != nil {
				return fmt.Errorf("add schedule item: %w", err)
			}
			fmt.Printf("Class slot created: %d (%s %s)\n", id, time.Weekday(day), item.StartTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&end, "end", "", "End time (HH:MM)")
	cmd.Flags().StringVar(&room, "room", "", "Room")
	return cmd
}

func newScheduleListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		today bool
		out   output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List class slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var (
				items []*organizer.ScheduleItem
				err   error
			)
			if today {
				items, err = repo.TodaySchedule(ctx)
			} else {
				items, err = repo.ListSchedule(ctx)
			}
			if err != nil {
				return fmt.Errorf("list schedule: %w", err)
			}

			if done, err := out.Structured(items); done {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No classes scheduled.")
				return nil
			}

			codes := subjectCodes(ctx, repo)
			table := output.NewTable("ID", "Day", "Start", "End", "Subject", "Room")
			for _, it := range items {
				table.AddRow(
					strconv.FormatInt(it.ID, 10),
					time.Weekday(it.DayOfWeek).String(),
					it.StartTime,
					it.EndTime,
					codes[it.SubjectID],
					it.Room,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&today, "today", false, "Only today's classes")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newScheduleDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a class slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteScheduleItem(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete schedule item: %w", err)
			}
			fmt.Printf("Class slot %d deleted\n", id)
			return nil
		},
	}
}
