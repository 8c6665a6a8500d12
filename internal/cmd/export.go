// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func newExportCmd(repo *organizer.Repository) *cobra.Command {
	var (
		format string // "json", "yaml", "csv"
		output string // file path or "-" for stdout
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export everything to a snapshot file",
		Long: `Export all collections. JSON snapshots can be imported again; YAML is
the same snapshot for reading, CSV lists subjects and tasks for spreadsheets.

Examples:
  arc-organizer export -o backup.json
  arc-organizer export --format yaml
  arc-organizer export --format csv -o semester.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var buf bytes.Buffer

			switch format {
			case "json", "yaml":
				snap, err := repo.Export(ctx)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				if format == "json" {
					err = organizer.WriteJSON(&buf, snap)
				} else {
					err = organizer.WriteYAML(&buf, snap)
				}
				if err != nil {
					return fmt.Errorf("export %s: %w", format, err)
				}
			case "csv":
				if err := repo.ExportCSV(ctx, &buf); err != nil {
					return fmt.Errorf("export csv: %w", err)
				}
			default:
				return fmt.Errorf("unsupported format: %s (choose json, yaml, csv)", format)
			}

			if output == "-" || output == "" {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json, yaml, csv")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")

	return cmd
}
