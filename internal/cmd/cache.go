// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
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

func newCacheCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the offline response caches",
	}

	cmd.AddCommand(newCacheListCmd(cfg, repo, log))
	cmd.AddCommand(newCachePrecacheCmd(cfg, repo, log))
	cmd.AddCommand(newCachePruneCmd(cfg, repo, log))
	cmd.AddCommand(newCacheClearCmd(cfg, repo, log))

	return cmd
}

type cacheSummary struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

func summarizeCaches(ctx context.Context, caches *offline.CacheStorage) ([]cacheSummary, error) {
	names, err := caches.Names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cacheSummary, 0, len(names))
	for _, name := range names {
		urls, err := caches.Keys(ctx, name)
		if err != nil {
			return nil, err
		}
		s := cacheSummary{Name: name, Entries: len(urls)}
		for _, u := range urls {
			resp, err := caches.Match(ctx, name, u)
			if err != nil {
				return nil, err
			}
			if resp != nil {
				s.Bytes += int64(len(resp.Body))
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func newCacheListCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var out output.OutputOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List caches with entry counts and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			summary, err := summarizeCaches(cmd.Context(), w.Caches().Caches())
			if err != nil {
				return fmt.Errorf("list caches: %w", err)
			}

			if done, err := out.Structured(summary); done {
				return err
			}
			if len(summary) == 0 {
				fmt.Println("No caches.")
				return nil
			}
			table := output.NewTable("Cache", "Entries", "Size")
			for _, s := range summary {
				table.AddRow(s.Name, strconv.Itoa(s.Entries), humanize.Bytes(uint64(s.Bytes)))
			}
			table.Render()
			return nil
		},
	}

	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newCachePrecacheCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "precache",
		Short: "Fetch the application shell into the static cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			if err := w.Caches().Install(cmd.Context(), cfg.Offline.Origin); err != nil {
				return err
			}
			fmt.Printf("Cached %d file(s) from %s\n", len(cfg.Offline.StaticFiles), cfg.Offline.Origin)
			return nil
		},
	}
}

func newCachePruneCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict the oldest dynamic entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep <= 0 {
				keep = cfg.Offline.MaxDynamicEntries
			}
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			n, err := w.Caches().PruneDynamic(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Printf("Evicted %d entr(ies), keeping at most %d\n", n, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "max", 0, "Entries to keep (default from config)")
	return cmd
}

func newCacheClearCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWorker(cmd.Context(), cfg, repo, log)
			if err != nil {
				return err
			}
			if err := w.HandleMessage(cmd.Context(), offline.Message{Type: offline.TypeClearCache}); err != nil {
				return err
			}
			fmt.Println("All caches cleared")
			return nil
		},
	}
}
