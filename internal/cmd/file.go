// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
)

func newFileCmd(repo *organizer.Repository) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "file",
		Aliases: []string{"files"},
		Short:   "Track course files",
		Long:    "Record metadata of files that belong to a subject. File content is not stored.",
	}

	cmd.AddCommand(newFileAddCmd(repo))
	cmd.AddCommand(newFileListCmd(repo))
	cmd.AddCommand(newFileDeleteCmd(repo))

	return cmd
}

// fileType derives a MIME type from the extension.
func fileType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}

func newFileAddCmd(repo *organizer.Repository) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Record a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", args[0], err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", args[0])
			}
			subjectID, err := resolveSubject(ctx, repo, subject)
			if err != nil {
				return err
			}
			f := &organizer.FileRecord{
				SubjectID: subjectID,
				Name:      info.Name(),
				Type:      fileType(info.Name()),
				Size:      info.Size(),
			}
			id, err := repo.AddFile(ctx, f)
			if err != nil {
				return fmt.Errorf("add file: %w", err)
			}
			fmt.Printf("File recorded: %d (%s, %s)\n", id, f.Name, humanize.Bytes(uint64(f.Size)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject id or code")
	return cmd
}

func newFileListCmd(repo *organizer.Repository) *cobra.Command {
	var (
		subject string
		typ     string
		out     output.OutputOptions
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.Resolve(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var (
				files []*organizer.FileRecord
				err   error
			)
			switch {
			case subject != "":
				var id int64
				if id, err = resolveSubject(ctx, repo, subject); err == nil {
					files, err = repo.FilesBySubject(ctx, id)
				}
			case typ != "":
				files, err = repo.FilesByType(ctx, typ)
			default:
				files, err = repo.ListFiles(ctx)
			}
			if err != nil {
				return fmt.Errorf("list files: %w", err)
			}

			if done, err := out.Structured(files); done {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No files recorded.")
				return nil
			}

			codes := subjectCodes(ctx, repo)
			var total int64
			table := output.NewTable("ID", "Name", "Subject", "Type", "Size", "Uploaded")
			for _, f := range files {
				total += f.Size
				table.AddRow(
					strconv.FormatInt(f.ID, 10),
					truncate(f.Name, 40),
					codes[f.SubjectID],
					f.Type,
					humanize.Bytes(uint64(f.Size)),
					humanize.Time(f.UploadDate),
				)
			}
			table.Render()

			fmt.Printf("\nTotal: %d file(s), %s\n", len(files), humanize.Bytes(uint64(total)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Only files of this subject")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Only files of this MIME type")
	out.AddOutputFlags(cmd, output.OutputTable)
	return cmd
}

func newFileDeleteCmd(repo *organizer.Repository) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Forget a recorded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := repo.DeleteFile(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete file: %w", err)
			}
			fmt.Printf("File %d deleted\n", id)
			return nil
		},
	}
}
