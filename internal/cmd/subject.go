// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newSubjectCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subject",
		Aliases: []string{"subjects"},
		Short:   "Manage subjects",
		Long:    "Add, list, grade and remove the courses you are enrolled in.",
	}

	cmd.AddCommand(newSubjectAddCmd(repo))
	cmd.AddCommand(newSubjectListCmd(repo))
	cmd.AddCommand(newSubjectShowCmd(repo))
	cmd.AddCommand(newSubjectGradeCmd(repo))
	cmd.AddCommand(newSubjectDeleteCmd(repo))

	return cmd
}

func newSubjectAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		code       string
		credits    int
		instructor string
		semester   string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subject",
		Long: `Add a subject. Codes are unique.

Examples:
  arc-organizer subject add "Linear Algebra" --code MATH201 --credits 4
  arc-organizer subject add "Databases" --code CS340 --semester 2025S --instructor "Dr. Kim"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &organizer.Subject{
				Name:        args[0],
				Code:        code,
				CreditHours: credits,
				Instructor:  instructor,
				Semester:    semester,
			}
			id, err := repo.AddSubject(cmd.Context(), s)
			if err != nil {
				return fmt.Errorf("add subject: %w", err)
			}
			fmt.Printf("Subject created: %d (%s)\n", id, s.Code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "Subject code (required, unique)")
	cmd.Flags().IntVar(&credits, "credits", 3, "Credit hours")
	cmd.Flags().StringVar(&instructor, "instructor", "", "Instructor name")
	cmd.Flags().StringVarP(&semester, "semester", "s", "", "Semester label")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newSubjectListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		semester string
		out      output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}

			var (
				subjects []*organizer.Subject
				err      error
			)
			if semester != "" {
				subjects, err = repo.SubjectsBySemester(cmd.Context(), semester)
			} else {
				subjects, err = repo.ListSubjects(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list subjects: %w", err)
			}

			if done, err := out.Structured(subjects); done {
				return err
			}
			if len(subjects) == 0 {
				fmt.Println("No subjects found.")
				return nil
			}

			table := output.NewTable("ID", "Code", "Name", "Credits", "Semester", "Grade")
			for _, s := range subjects {
				grade := "-"
				if v, ok := organizer.GradeValue(s); ok {
					grade = strconv.FormatFloat(v, 'f', 2, 64)
					if s.Grade != "" {
						grade = s.Grade + " (" + grade + ")"
					}
				}
				table.AddRow(strconv.FormatInt(s.ID, 10), s.Code, truncate(s.Name, 40),
					strconv.Itoa(s.CreditHours), s.Semester, grade)
			}
			table.Render()

			fmt.Printf("\nTotal: %d subject(s), GPA %.2f\n", len(subjects), organizer.CalculateGPA(subjects))
			return nil
		},
	}

	cmd.Flags().StringVarP(&semester, "semester", "s", "", "Only subjects of this semester")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newSubjectShowCmd(repo *organizer.Repository) *cobra.Command {
	var out output.OutputOptions

	cmd := &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show a subject with its tasks, classes and grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			ctx := cmd.Context()
			id, err := resolveSubject(ctx, repo, args[0])
			if err != nil {
				return err
			}
			s, err := repo.GetSubject(ctx, id)
			if err != nil {
				return fmt.Errorf("get subject: %w", err)
			}
			tasks, err := repo.TasksBySubject(ctx, id)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			schedule, err := repo.ScheduleBySubject(ctx, id)
			if err != nil {
				return fmt.Errorf("list schedule: %w", err)
			}
			grades, err := repo.GradesBySubject(ctx, id)
			if err != nil {
				return fmt.Errorf("list grades: %w", err)
			}

			detail := map[string]any{
				"subject":  s,
				"tasks":    tasks,
				"schedule": schedule,
				"grades":   grades,
			}
			if done, err := out.Structured(detail); done {
				return err
			}

			fmt.Printf("%s  %s\n", s.Code, s.Name)
			fmt.Printf("Credits:    %d\n", s.CreditHours)
			if s.Instructor != "" {
				fmt.Printf("Instructor: %s\n", s.Instructor)
			}
			if s.Semester != "" {
				fmt.Printf("Semester:   %s\n", s.Semester)
			}
			if s.Grade != "" {
				fmt.Printf("Grade:      %s\n", s.Grade)
			}
			fmt.Printf("\nTasks: %d   Classes: %d   Grades: %d\n", len(tasks), len(schedule), len(grades))
			for _, t := range tasks {
				mark := " "
				if t.Completed {
					mark = "x"
				}
				fmt.Printf("  [%s] %d %s (due %s)\n", mark, t.ID, t.Title, formatDate(t.DueDate))
			}
			return nil
		},
	}

	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newSubjectGradeCmd(repo *organizer.Repository) *cobra.Command {
	var gpa float64

	cmd := &cobra.Command{
		Use:   "grade <id|code> <letter>",
		Short: "Record the final grade of a subject",
		Long: `Record a letter grade, optionally with an explicit grade point value.

Examples:
  arc-organizer subject grade MATH201 A-
  arc-organizer subject grade CS340 B+ --gpa 3.4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveSubject(ctx, repo, args[0])
			if err != nil {
				return err
			}
			s, err := repo.GetSubject(ctx, id)
			if err != nil {
				return fmt.Errorf("get subject: %w", err)
			}
			s.Grade = args[1]
			if cmd.Flags().Changed("gpa") {
				s.GPA = &gpa
			}
			if err := repo.UpdateSubject(ctx, s); err != nil {
				return fmt.Errorf("update subject: %w", err)
			}
			fmt.Printf("Grade recorded for %s: %s\n", s.Code, s.Grade)
			return nil
		},
	}

	cmd.Flags().Float64Var(&gpa, "gpa", 0, "Grade points on the 4.0 scale")
	return cmd
}

func newSubjectDeleteCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id|code>",
		Short: "Delete a subject and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveSubject(ctx, repo, args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteSubject(ctx, id); err != nil {
				var cf *organizer.CascadeFault
				if errors.As(err, &cf) {
					for _, f := range cf.Failures {
						fmt.Printf("  could not remove %s: %v\n", f.Collection, f.Err)
					}
				}
				return fmt.Errorf("delete subject: %w", err)
			}
			fmt.Printf("Subject %d deleted\n", id)
			return nil
		},
	}

	return cmd
}
