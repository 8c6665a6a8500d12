// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func newWatchCmd(repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var (
		dir        string
		debounceMs int
		oneShot    bool
		archive    bool
	)

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Watch a folder for snapshots and auto-import",
		Long: `Monitor a directory for exported JSON snapshots (for example a synced
folder shared with another device) and import each one as it appears.
Every import replaces the current data.

Examples:
  arc-organizer watch ~/Dropbox/organizer
  arc-organizer watch ~/Sync --archive
  arc-organizer watch ~/Sync --one-shot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				dir = args[0]
			}
			if dir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("cannot determine home directory: %w", err)
				}
				dir = filepath.Join(home, ".arc", "inbox")
			}

			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("cannot access directory %s: %w", dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			w := &snapshotWatcher{repo: repo, log: log.Named("watch"), archive: archive}
			if oneShot {
				return w.importLatest(cmd.Context(), dir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.watch(ctx, dir, time.Duration(debounceMs)*time.Millisecond)
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 1000, "Debounce milliseconds for file events")
	cmd.Flags().BoolVar(&oneShot, "one-shot", false, "Import the newest existing snapshot and exit")
	cmd.Flags().BoolVar(&archive, "archive", false, "Rename imported snapshots to *.imported")

	return cmd
}

type snapshotWatcher struct {
	repo    *organizer.Repository
	log     *zap.Logger
	archive bool
	mu      sync.Mutex // serializes imports
}

func isSnapshot(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}

func (w *snapshotWatcher) watch(ctx context.Context, dir string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	w.log.Info("watching for snapshots", zap.String("dir", dir))
	fmt.Println("Press Ctrl+C to stop watching")

	// Debounce: a snapshot is imported once writes to it stop.
	pending := make(map[string]*time.Timer)
	var pendingMu sync.Mutex
	defer func() {
		pendingMu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		pendingMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSnapshot(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			name := event.Name
			pendingMu.Lock()
			if timer, exists := pending[name]; exists {
				timer.Stop()
			}
			pending[name] = time.AfterFunc(debounce, func() {
				pendingMu.Lock()
				delete(pending, name)
				pendingMu.Unlock()

				if err := w.importFile(ctx, name); err != nil {
					w.log.Error("snapshot import failed", zap.String("file", name), zap.Error(err))
				}
			})
			pendingMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// importLatest imports the most recently modified snapshot in dir.
func (w *snapshotWatcher) importLatest(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !isSnapshot(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	if len(files) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	return w.importFile(ctx, files[0].path)
}

func (w *snapshotWatcher) importFile(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		// renamed away or archived by an earlier event
		return nil
	}
	counts, err := importSnapshot(ctx, w.repo, path)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	w.log.Info("snapshot imported", zap.String("file", path), zap.Int("records", total))
	fmt.Printf("Imported: %s (%d records)\n", filepath.Base(path), total)

	if w.archive {
		if err := os.Rename(path, path+".imported"); err != nil {
			return fmt.Errorf("archive snapshot: %w", err)
		}
	}
	return nil
}
