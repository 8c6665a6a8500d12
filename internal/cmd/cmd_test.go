// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/organizer"
	"github.com/mtreilly/arc-organizer/internal/output"
	"github.com/mtreilly/arc-organizer/internal/search"
)

func newTestRepo(t *testing.T) *organizer.Repository {
	t.Helper()
	repo, err := organizer.Open(context.Background(), kv.NewMemoryStore(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}

func execute(t *testing.T, repo *organizer.Repository, args ...string) error {
	t.Helper()
	cfg := &config.Config{Search: config.SearchConfig{MemoSize: 16}}
	root := NewRootCmd(cfg, repo, zaptest.NewLogger(t))
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func mustExecute(t *testing.T, repo *organizer.Repository, args ...string) {
	t.Helper()
	if err := execute(t, repo, args...); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
}

func TestSubjectAndTaskCommands(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mustExecute(t, repo, "subject", "add", "Linear Algebra", "--code", "MATH201", "--credits", "4")
	if err := execute(t, repo, "subject", "add", "Duplicate", "--code", "MATH201"); err == nil {
		t.Fatal("duplicate code accepted")
	}
	mustExecute(t, repo, "task", "add", "Problem set 3", "--subject", "MATH201", "--due", "2030-01-10")

	s, err := repo.SubjectByCode(ctx, "MATH201")
	if err != nil || s == nil {
		t.Fatalf("SubjectByCode: %v %v", s, err)
	}
	tasks, err := repo.TasksBySubject(ctx, s.ID)
	if err != nil {
		t.Fatalf("TasksBySubject: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Priority != organizer.PriorityMedium {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if got := tasks[0].DueDate.Local().Format(dateLayout); got != "2030-01-10" {
		t.Fatalf("due date %s", got)
	}

	mustExecute(t, repo, "task", "done", "1")
	done, _ := repo.GetTask(ctx, tasks[0].ID)
	if !done.Completed || done.CompletedAt == nil {
		t.Fatalf("task not completed: %+v", done)
	}

	if err := execute(t, repo, "task", "add", "Orphan", "--subject", "NOPE1"); err == nil {
		t.Fatal("unknown subject accepted")
	}

	usage, err := repo.UsageStats(ctx)
	if err != nil {
		t.Fatalf("UsageStats: %v", err)
	}
	if usage.Sessions < 5 || usage.SubjectsCreated != 1 || usage.TasksCreated != 1 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}

func TestSubjectDeleteCommandCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mustExecute(t, repo, "subject", "add", "Databases", "--code", "CS340")
	mustExecute(t, repo, "task", "add", "ER diagram", "--subject", "CS340")
	mustExecute(t, repo, "schedule", "add", "CS340", "tue", "14:00", "--end", "15:30")
	mustExecute(t, repo, "note", "add", "Lecture 1", "--subject", "CS340", "--content", "joins")
	mustExecute(t, repo, "grade", "add", "CS340", "18", "--max", "20", "--type", "quiz")

	mustExecute(t, repo, "subject", "delete", "CS340")

	for name, count := range map[string]func() (int, error){
		"tasks":    func() (int, error) { v, err := repo.ListTasks(ctx); return len(v), err },
		"schedule": func() (int, error) { v, err := repo.ListSchedule(ctx); return len(v), err },
		"notes":    func() (int, error) { v, err := repo.ListNotes(ctx); return len(v), err },
		"grades":   func() (int, error) { v, err := repo.ListGrades(ctx); return len(v), err },
	} {
		n, err := count()
		if err != nil || n != 0 {
			t.Fatalf("%s left after delete: %d %v", name, n, err)
		}
	}
}

func TestExportImportCommands(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	path := filepath.Join(t.TempDir(), "backup.json")

	mustExecute(t, repo, "subject", "add", "Physics", "--code", "PHY101")
	mustExecute(t, repo, "task", "add", "Lab report", "--subject", "PHY101")
	mustExecute(t, repo, "export", "-o", path)

	mustExecute(t, repo, "subject", "add", "Chemistry", "--code", "CHE101")
	if err := execute(t, repo, "import", path); err == nil {
		t.Fatal("import without --yes should be refused")
	}
	mustExecute(t, repo, "import", path, "--yes")

	subjects, _ := repo.ListSubjects(ctx)
	if len(subjects) != 1 || subjects[0].Code != "PHY101" {
		t.Fatalf("unexpected subjects after import: %+v", subjects)
	}
	tasks, _ := repo.TasksBySubject(ctx, subjects[0].ID)
	if len(tasks) != 1 {
		t.Fatalf("task not remapped to imported subject: %+v", tasks)
	}

	if err := execute(t, repo, "export", "--format", "xml"); err == nil {
		t.Fatal("unknown export format accepted")
	}
}

func TestSearchCommandJSON(t *testing.T) {
	repo := newTestRepo(t)
	mustExecute(t, repo, "subject", "add", "Linear Algebra", "--code", "MATH201")
	mustExecute(t, repo, "task", "add", "Algebra worksheet")
	mustExecute(t, repo, "note", "add", "Groceries")

	var buf bytes.Buffer
	prev := output.Stdout
	output.Stdout = &buf
	defer func() { output.Stdout = prev }()

	mustExecute(t, repo, "search", "algebra", "-o", "json")

	var results []search.Result
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("decode results %q: %v", buf.String(), err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
}

func TestWatchImportsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := newTestRepo(t)
	for i, code := range []string{"OLD100", "NEW200"} {
		mustExecute(t, src, "subject", "add", "Subject", "--code", code)
		path := filepath.Join(dir, code+".json")
		mustExecute(t, src, "export", "-o", path)
		mod := time.Now().Add(time.Duration(i-2) * time.Hour)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}

	dst := newTestRepo(t)
	w := &snapshotWatcher{repo: dst, log: zaptest.NewLogger(t), archive: true}
	if err := w.importLatest(ctx, dir); err != nil {
		t.Fatalf("importLatest: %v", err)
	}
	subjects, _ := dst.ListSubjects(ctx)
	if len(subjects) != 2 {
		t.Fatalf("newest snapshot holds 2 subjects, imported %d", len(subjects))
	}
	if _, err := os.Stat(filepath.Join(dir, "NEW200.json.imported")); err != nil {
		t.Fatalf("snapshot not archived: %v", err)
	}
}

func TestSettingValue(t *testing.T) {
	if v := settingValue("24"); v != float64(24) {
		t.Fatalf("number: %#v", v)
	}
	if v := settingValue("true"); v != true {
		t.Fatalf("bool: %#v", v)
	}
	if v := settingValue("dark"); v != "dark" {
		t.Fatalf("string: %#v", v)
	}
}

func TestParseWeekday(t *testing.T) {
	tests := map[string]int{"0": 0, "6": 6, "monday": 1, "Wed": 3, "saturday": 6}
	for in, want := range tests {
		got, err := parseWeekday(in)
		if err != nil || got != want {
			t.Fatalf("parseWeekday(%q) = %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"7", "mo", "someday"} {
		if _, err := parseWeekday(bad); err == nil {
			t.Fatalf("parseWeekday(%q) accepted", bad)
		}
	}
}
