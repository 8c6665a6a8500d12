// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
	"github.com/mtreilly/arc-organizer/internal/search"
)

func newSearchCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var (
		types []string
		limit int
		out   output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subjects, tasks and notes",
		Long: `Search across subject names and codes, task titles and descriptions,
and note titles and content. Queries shorter than two characters match nothing.

Examples:
  arc-organizer search "linear algebra"
  arc-organizer search essay --type task
  arc-organizer search midterm --type note --type task --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			query := args[0]

			ix, err := search.New(cfg.Search.MemoSize, log)
			if err != nil {
				return err
			}
			if err := ix.Build(cmd.Context(), repo); err != nil {
				return fmt.Errorf("build index: %w", err)
			}

			results := ix.Search(query, types...)
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			if done, err := out.Structured(results); done {
				return err
			}
			if len(results) == 0 {
				fmt.Printf("Nothing found matching %q\n", query)
				return nil
			}

			fmt.Printf("Found %d result(s) for %q:\n\n", len(results), query)

			table := output.NewTable("Type", "ID", "Title", "Relevance")
			for _, r := range results {
				table.AddRow(r.Type, strconv.FormatInt(r.ID, 10), truncate(r.Title, 45),
					strconv.FormatFloat(r.Relevance, 'f', 2, 64))
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Restrict to subject, task or note")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results (0 = no limit)")
	out.AddOutputFlags(cmd, output.OutputTable)

	return cmd
}
