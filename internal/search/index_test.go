// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package search

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mtreilly/arc-organizer/internal/kv"
	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func buildIndex(t *testing.T) (*Index, *organizer.Repository) {
	t.Helper()
	ctx := context.Background()
	repo, err := organizer.Open(ctx, kv.NewMemoryStore(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("organizer.Open: %v", err)
	}
	subject := &organizer.Subject{Name: "Linear Algebra", Code: "MATH210", CreditHours: 3, Instructor: "Dr. Noether"}
	if _, err := repo.AddSubject(ctx, subject); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}
	if _, err := repo.AddTask(ctx, &organizer.Task{Title: "Algebra worksheet", Description: "matrices and vectors", SubjectID: subject.ID}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := repo.AddNote(ctx, &organizer.Note{Title: "Eigenvalues", Content: "linear maps and their algebra"}); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	ix, err := New(8, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ix.Build(ctx, repo); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix, repo
}

func TestSearchShortQuery(t *testing.T) {
	ix, _ := buildIndex(t)
	if got := ix.Search("a"); len(got) != 0 {
		t.Fatalf("Search(a): got %v, want nothing", got)
	}
	if got := ix.Search(""); len(got) != 0 {
		t.Fatalf("Search(empty): got %v", got)
	}
}

func TestSearchRanksPrefixMatchesFirst(t *testing.T) {
	ix, _ := buildIndex(t)
	got := ix.Search("Algebra")
	if len(got) != 3 {
		t.Fatalf("Search: got %d results, want 3: %v", len(got), got)
	}
	// the task text starts with "algebra"
	if got[0].Type != TypeTask || got[0].Relevance != 1.5 {
		t.Fatalf("top result: %+v", got[0])
	}
	for _, r := range got[1:] {
		if r.Relevance != 1 {
			t.Fatalf("non-prefix match relevance: %+v", r)
		}
	}
	// ties break by type
	if got[1].Type != TypeNote || got[2].Type != TypeSubject {
		t.Fatalf("tie order: %+v", got[1:])
	}
}

func TestSearchFiltersByType(t *testing.T) {
	ix, _ := buildIndex(t)
	got := ix.Search("algebra", TypeSubject)
	if len(got) != 1 || got[0].Title != "Linear Algebra" {
		t.Fatalf("Search subjects: %v", got)
	}
}

func TestSearchWholeQueryMustMatch(t *testing.T) {
	ix, _ := buildIndex(t)
	if got := ix.Search("algebra zebra"); len(got) != 0 {
		t.Fatalf("Search: got %v, want nothing", got)
	}
	got := ix.Search("linear algebra")
	if len(got) != 1 || got[0].Relevance != 2.5 {
		t.Fatalf("Search multi-word: %+v", got)
	}
}

func TestRebuildInvalidatesMemo(t *testing.T) {
	ctx := context.Background()
	ix, repo := buildIndex(t)
	if got := ix.Search("quantum"); len(got) != 0 {
		t.Fatalf("Search before add: %v", got)
	}
	if _, err := repo.AddNote(ctx, &organizer.Note{Title: "Quantum notes"}); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if err := ix.Build(ctx, repo); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := ix.Search("quantum"); len(got) != 1 {
		t.Fatalf("Search after rebuild: %v", got)
	}

	ix.Remove(TypeNote, 2)
	if got := ix.Search("quantum"); len(got) != 0 {
		t.Fatalf("Search after Remove: %v", got)
	}
	ix.Put(TypeTask, 99, "Quantum lab", "Quantum lab")
	if got := ix.Search("quantum"); len(got) != 1 || got[0].ID != 99 {
		t.Fatalf("Search after Put: %v", got)
	}
}
