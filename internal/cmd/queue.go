// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/offline"
	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newQueueCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and replay writes queued while offline",
	}

	cmd.AddCommand(newQueueListCmd(cfg, repo, log))
	cmd.AddCommand(newQueueAddCmd(cfg, repo, log))
	cmd.AddCommand(newQueueReplayCmd(cfg, repo, log))
	cmd.AddCommand(newQueueRemoveCmd(cfg, repo, log))

	return cmd
}

func newQueueListCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var out output.OutputOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued actions in replay order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			actions, err := w.Queue().Pending(cmd.Context())
			if err != nil {
				return err
			}

			if done, err := out.Structured(actions); done {
				return err
			}
			if len(actions) == 0 {
				fmt.Println("Queue is empty.")
				return nil
			}
			table := output.NewTable("ID", "Type", "Method", "URL", "Queued", "Attempts", "Last error")
			for _, a := range actions {
				table.AddRow(
					strconv.FormatInt(a.ID, 10),
					a.Type,
					a.Method,
					truncate(a.URL, 50),
					humanize.Time(a.QueuedAt),
					strconv.Itoa(a.Attempts),
					truncate(a.LastError, 40),
				)
			}
			table.Render()
			return nil
		},
	}

	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newQueueAddCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var (
		typ    string
		method string
		data   string
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a write for the next replay",
		Long: `Queue a write for the next replay.

Examples:
  arc-organizer queue add https://organizer.example.com/api/tasks --type task --data '{"title":"Essay"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" && !json.Valid([]byte(data)) {
				return fmt.Errorf("--data must be valid JSON")
			}
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			a := offline.Action{Type: typ, URL: args[0], Method: method}
			if data != "" {
				a.Data = json.RawMessage(data)
			}
			id, err := w.Queue().Enqueue(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Printf("Action queued: %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "Action type (task, subject, note...)")
	cmd.Flags().StringVarP(&method, "method", "X", "POST", "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body")
	return cmd
}

func newQueueReplayCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Send every queued action now",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			report, err := w.Sync(cmd.Context(), offline.SyncTag)
			if err != nil {
				return err
			}
			fmt.Printf("Replayed: %d, Failed: %d\n", report.Replayed, len(report.Failed))
			if report.Err != nil {
				return fmt.Errorf("replay: %w", report.Err)
			}
			return nil
		},
	}
}

func newQueueRemoveCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a queued action without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			if err := w.Queue().Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Action %d removed\n", id)
			return nil
		},
	}
}
