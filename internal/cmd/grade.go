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

func newGradeCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grade",
		Aliases: []string{"grades"},
		Short:   "Record assessment results",
	}

	cmd.AddCommand(newGradeAddCmd(repo))
	cmd.AddCommand(newGradeListCmd(repo))
	cmd.AddCommand(newGradeDeleteCmd(repo))

	return cmd
}

func newGradeAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		typ      string
		maxValue float64
		date     string
	)

	cmd := &cobra.Command{
		Use:   "add <subject> <value>",
		Short: "Record a grade",
		Long: `Record a grade for a subject.

Examples:
  arc-organizer grade add MATH201 87 --max 100 --type exam
  arc-organizer grade add CS340 9.5 --max 10 --type quiz --date 2025-02-20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subjectID, err := resolveSubject(ctx, repo, args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", args[1])
			}
			g := &organizer.Grade{SubjectID: subjectID, Type: typ, Value: value, MaxValue: maxValue}
			if date != "" {
				if g.Date, err = parseDate(date); err != nil {
					return err
				}
			}
			id, err := repo.AddGrade(ctx, g)
			if err != nil {
				return fmt.Errorf("add grade: %w", err)
			}
			fmt.Printf("Grade recorded: %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "assignment", "Assessment type (exam, quiz, assignment...)")
	cmd.Flags().Float64Var(&maxValue, "max", 100, "Maximum attainable value")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD, default today)")
	return cmd
}

func newGradeListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject string
		out     output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grades",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var (
				grades []*organizer.Grade
				err    error
			)
			if subject != "" {
				var id int64
				if id, err = resolveSubject(ctx, repo, subject); err == nil {
					grades, err = repo.GradesBySubject(ctx, id)
				}
			} else {
				grades, err = repo.ListGrades(ctx)
			}
			if err != nil {
				return fmt.Errorf("list grades: %w", err)
			}

			if done, err := out.Structured(grades); done {
				return err
			}
			if len(grades) == 0 {
				fmt.Println("No grades recorded.")
				return nil
			}

			codes := subjectCodes(ctx, repo)
			table := output.NewTable("ID", "Subject", "Type", "Date", "Score", "Percent")
			for _, g := range grades {
				pct := "-"
				if g.MaxValue > 0 {
					pct = fmt.Sprintf("%.1f%%", g.Value/g.MaxValue*100)
				}
				table.AddRow(
					strconv.FormatInt(g.ID, 10),
					codes[g.SubjectID],
					g.Type,
					formatDate(g.Date),
					fmt.Sprintf("%g/%g", g.Value, g.MaxValue),
					pct,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Only grades of this subject")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newGradeDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a grade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteGrade(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete grade: %w", err)
			}
			fmt.Printf("Grade %d deleted\n", id)
			return nil
		},
	}
}
