// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newStatsCmd(repo *organizer.Repository) *cobra.Command {
	var out output.OutputOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show organizer statistics",
		Long:  `Display totals for subjects, tasks, files and grades, GPA, storage and usage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}

			stats, err := repo.Statistics(cmd.Context())
			if err != nil {
				return fmt.Errorf("statistics: %w", err)
			}

			if done, err := out.Structured(stats); done {
				return err
			}

			fmt.Printf("Organizer Statistics\n")
			fmt.Printf("====================\n\n")
			fmt.Printf("Subjects:      %d (%d credit hours)\n", stats.Subjects.Total, stats.Subjects.CreditHours)
			fmt.Printf("Tasks:         %d (%d done, %d pending, %d overdue)\n",
				stats.Tasks.Total, stats.Tasks.Completed, stats.Tasks.Pending, stats.Tasks.Overdue)
			fmt.Printf("Files:         %d (%s)\n", stats.Files.Total, humanize.Bytes(uint64(stats.Files.Size)))
			fmt.Printf("GPA:           %.2f\n", stats.Grades.Average)
			if s := stats.Storage; s != nil {
				if s.Quota > 0 {
					fmt.Printf("Storage:       %s of %s (%d%%)\n",
						humanize.Bytes(uint64(s.Used)), humanize.Bytes(uint64(s.Quota)), s.Percentage)
				} else {
					fmt.Printf("Storage:       %s\n", humanize.Bytes(uint64(s.Used)))
				}
			}

			u := stats.Usage
			fmt.Printf("\nSessions:      %s\n", humanize.Comma(u.Sessions))
			fmt.Printf("Created:       %d subjects, %d tasks\n", u.SubjectsCreated, u.TasksCreated)
			fmt.Printf("Time in app:   %s (avg %s)\n",
				time.Duration(u.TotalUsage)*time.Second, time.Duration(u.AverageSessionTime)*time.Second)
			if u.LastActivity != nil {
				fmt.Printf("Last activity: %s\n", humanize.Time(*u.LastActivity))
			}

			return nil
		},
	}

	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}
