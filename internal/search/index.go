// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package search keeps an in-memory substring index over subjects, tasks
// and notes.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/organizer"
)

// Document types.
const (
	TypeSubject = "subject"
	TypeTask    = "task"
	TypeNote    = "note"
)

// DefaultMemoSize is the number of memoized queries kept when none is given.
const DefaultMemoSize = 128

// Source supplies the records to index.
type Source interface {
	ListSubjects(ctx context.Context) ([]*organizer.Subject, error)
	ListTasks(ctx context.Context) ([]*organizer.Task, error)
	ListNotes(ctx context.Context) ([]*organizer.Note, error)
}

// Result is one search hit.
type Result struct {
	Type      string  `json:"type" yaml:"type"`
	ID        int64   `json:"id" yaml:"id"`
	Title     string  `json:"title" yaml:"title"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

type entry struct {
	typ   string
	id    int64
	title string
	text  string // lowercased, space joined
}

// Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
	memo    *lru.Cache[string, []Result]
	log     *zap.Logger
}

// New returns an empty index memoizing up to memoSize queries.
func New(memoSize int, log *zap.Logger) (*Index, error) {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	memo, err := lru.New[string, []Result](memoSize)
	if err != nil {
		return nil, fmt.Errorf("search memo: %w", err)
	}
	return &Index{
		entries: make(map[string]entry),
		memo:    memo,
		log:     log.Named("search"),
	}, nil
}

// Build replaces the index contents with the current records of src.
func (ix *Index) Build(ctx context.Context, src Source) error {
	subjects, err := src.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("index subjects: %w", err)
	}
	tasks, err := src.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("index tasks: %w", err)
	}
	notes, err := src.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("index notes: %w", err)
	}

	entries := make(map[string]entry, len(subjects)+len(tasks)+len(notes))
	add := func(e entry) { entries[key(e.typ, e.id)] = e }
	for _, s := range subjects {
		add(newEntry(TypeSubject, s.ID, s.Name, s.Name, s.Code, s.Instructor))
	}
	for _, t := range tasks {
		add(newEntry(TypeTask, t.ID, t.Title, t.Title, t.Description))
	}
	for _, n := range notes {
		add(newEntry(TypeNote, n.ID, n.Title, n.Title, n.Content))
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.memo.Purge()
	ix.mu.Unlock()

	ix.log.Debug("search index built", zap.Int("entries", len(entries)))
	return nil
}

// Put indexes or re-indexes a single document.
func (ix *Index) Put(typ string, id int64, title string, fields ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[key(typ, id)] = newEntry(typ, id, title, fields...)
	ix.memo.Purge()
}

// Remove drops a document. Removing an unknown document does nothing.
func (ix *Index) Remove(typ string, id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, key(typ, id))
	ix.memo.Purge()
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns documents whose text contains query, case-insensitively,
// best first. Queries shorter than two characters match nothing. When types
// are given only documents of those types are returned.
func (ix *Index) Search(query string, types ...string) []Result {
	q := strings.ToLower(query)
	if utf8.RuneCountInString(q) < 2 {
		return nil
	}
	memoKey := q + "\x00" + strings.Join(types, ",")

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if hit, ok := ix.memo.Get(memoKey); ok {
		return append([]Result(nil), hit...)
	}

	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []Result
	for _, e := range ix.entries {
		if len(want) > 0 && !want[e.typ] {
			continue
		}
		if !strings.Contains(e.text, q) {
			continue
		}
		out = append(out, Result{Type: e.typ, ID: e.id, Title: e.title, Relevance: relevance(e.text, q)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	ix.memo.Add(memoKey, out)
	return append([]Result(nil), out...)
}

// relevance scores one point per query word found in text and half a point
// more when the text starts with it. Single-character words are ignored.
func relevance(text, query string) float64 {
	var score float64
	for _, word := range strings.Split(query, " ") {
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		idx := strings.Index(text, word)
		if idx < 0 {
			continue
		}
		score++
		if idx == 0 {
			score += 0.5
		}
	}
	return score
}

func newEntry(typ string, id int64, title string, fields ...string) entry {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return entry{typ: typ, id: id, title: title, text: strings.ToLower(strings.Join(parts, " "))}
}

func key(typ string, id int64) string {
	return fmt.Sprintf("%s-%d", typ, id)
}
