// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func newImportCmd(repo *organizer.Repository) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Replace all data with a snapshot",
		Long: `Import a JSON snapshot written by export. Existing data is replaced.
The snapshot is checked completely before anything is deleted.

Examples:
  arc-organizer import backup.json --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("import replaces all existing data; pass --yes to confirm")
			}
			counts, err := importSnapshot(cmd.Context(), repo, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s\n", args[0])
			for _, coll := range organizer.Schema().Collections {
				if n := counts[coll.Name]; n > 0 {
					fmt.Printf("  %-10s %d\n", coll.Name, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm replacing existing data")
	return cmd
}

// importSnapshot reads and imports path, returning record counts per
// collection.
func importSnapshot(ctx context.Context, repo *organizer.Repository, path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := organizer.ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	if err := repo.Import(ctx, snap); err != nil {
		var fault *organizer.ImportFault
		if errors.As(err, &fault) {
			return nil, fmt.Errorf("import stopped in %s after %d records, data is incomplete: %w",
				fault.Collection, fault.Imported, err)
		}
		return nil, fmt.Errorf("import: %w", err)
	}

	counts := make(map[string]int, len(snap.Data))
	for coll, recs := range snap.Data {
		counts[coll] = len(recs)
	}
	return counts, nil
}
