// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newNoteCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"notes"},
		Short:   "Manage notes",
	}

	cmd.AddCommand(newNoteAddCmd(repo))
	cmd.AddCommand(newNoteListCmd(repo))
	cmd.AddCommand(newNoteShowCmd(repo))
	cmd.AddCommand(newNoteEditCmd(repo))
	cmd.AddCommand(newNoteDeleteCmd(repo))

	return cmd
}

// noteContent returns the --content flag, or stdin when it is "-".
func noteContent(content string) (string, error) {
	if content != "-" {
		return content, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newNoteAddCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject string
		content string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a note",
		Long: `Add a note. Use --content - to read the body from stdin.

Examples:
  arc-organizer note add "Lecture 4" --subject CS340 --content "B-trees, fanout"
  cat summary.md | arc-organizer note add "Midterm summary" --content -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subjectID, err := resolveSubject(ctx, repo, subject)
			if err != nil {
				return err
			}
			body, err := noteContent(content)
			if err != nil {
				return err
			}
			id, err := repo.AddNote(ctx, &organizer.Note{Title: args[0], SubjectID: subjectID, Content: body})
			if err != nil {
				return fmt.Errorf("add note: %w", err)
			}
			fmt.Printf("Note created: %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject id or code")
	cmd.Flags().StringVar(&content, "content", "", "Note body, - for stdin")
	return cmd
}

func newNoteListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject string
		out     output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var (
				notes []*organizer.Note
				err   error
			)
			if subject != "" {
				var id int64
				if id, err = resolveSubject(ctx, repo, subject); err == nil {
					notes, err = repo.NotesBySubject(ctx, id)
				}
			} else {
				notes, err = repo.ListNotes(ctx)
			}
			if err != nil {
				return fmt.Errorf("list notes: %w", err)
			}

			if done, err := out.Structured(notes); done {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No notes found.")
				return nil
			}

			codes := subjectCodes(ctx, repo)
			table := output.NewTable("ID", "Title", "Subject", "Updated", "Preview")
			for _, n := range notes {
				table.AddRow(
					strconv.FormatInt(n.ID, 10),
					truncate(n.Title, 30),
					codes[n.SubjectID],
					formatDate(n.UpdatedAt),
					truncate(n.Content, 40),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Only notes of this subject")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newNoteShowCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := repo.GetNote(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get note: %w", err)
			}
			if n == nil {
				return fmt.Errorf("note %d not found", id)
			}
			fmt.Printf("# %s\n\n%s\n", n.Title, n.Content)
			return nil
		},
	}
}

func newNoteEditCmd(repo *organizer.Repository) *cobra.Command {
	var (
		title   string
		content string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or body of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			n, err := repo.GetNote(ctx, id)
			if err != nil {
				return fmt.Errorf("get note: %w", err)
			}
			if n == nil {
				return fmt.Errorf("note %d not found", id)
			}
			if cmd.Flags().Changed("title") {
				n.Title = title
			}
			if cmd.Flags().Changed("content") {
				if n.Content, err = noteContent(content); err != nil {
					return err
				}
			}
			if err := repo.UpdateNote(ctx, n); err != nil {
				return fmt.Errorf("update note: %w", err)
			}
			fmt.Printf("Note %d updated\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New body, - for stdin")
	return cmd
}

func newNoteDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteNote(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete note: %w", err)
			}
			fmt.Printf("Note %d deleted\n", id)
			return nil
		},
	}
}
