// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD (local midnight) or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// resolveSubject accepts a numeric id or a subject code. An empty ref
// resolves to 0.
func resolveSubject(ctx context.Context, repo *organizer.Repository, ref string) (int64, error) {
	if ref == "" {
		return 0, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		s, err := repo.GetSubject(ctx, id)
		if err != nil {
			return 0, err
		}
		if s == nil {
			return 0, fmt.Errorf("subject %d not found", id)
		}
		return id, nil
	}
	s, err := repo.SubjectByCode(ctx, ref)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, fmt.Errorf("subject %q not found", ref)
	}
	return s.ID, nil
}

// subjectCodes maps subject ids to codes for table output.
func subjectCodes(ctx context.Context, repo *organizer.Repository) map[int64]string {
	codes := make(map[int64]string)
	subjects, err := repo.ListSubjects(ctx)
	if err != nil {
		return codes
	}
	for _, s := range subjects {
		codes[s.ID] = s.Code
	}
	return codes
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
