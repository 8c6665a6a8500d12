// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/organizer"
)

// NewRootCmd creates the root command for arc-organizer.
func NewRootCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var started time.Time

	root := &cobra.Command{
		Use:   "arc-organizer",
		Short: "Organize your courses, tasks and schedule",
		Long: `Keep track of a semester from the terminal.

arc-organizer provides tools to:
- Manage subjects, tasks, class schedule, notes, grades, files and goals
- See upcoming and overdue work and today's classes
- Search across subjects, tasks and notes
- Export and import complete snapshots (JSON, YAML, CSV)
- Run the offline worker that caches the web app and queues writes`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			started = time.Now()
			return repo.StartSession(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return repo.AddUsage(cmd.Context(), time.Since(started))
		},
	}

	root.AddCommand(newSubjectCmd(repo))
	root.AddCommand(newTaskCmd(repo))
	root.AddCommand(newScheduleCmd(repo))
	root.AddCommand(newNoteCmd(repo))
	root.AddCommand(newGradeCmd(repo))
	root.AddCommand(newFileCmd(repo))
	root.AddCommand(newGoalCmd(repo))
	root.AddCommand(newSettingCmd(repo))
	root.AddCommand(newStatsCmd(repo))
	root.AddCommand(newSearchCmd(cfg, repo, log))
	root.AddCommand(newExportCmd(repo))
	root.AddCommand(newImportCmd(repo))
	root.AddCommand(newWatchCmd(repo, log))
	root.AddCommand(newServeCmd(cfg, repo, log))
	root.AddCommand(newQueueCmd(cfg, repo, log))
	root.AddCommand(newCacheCmd(cfg, repo, log))

	return root
}
